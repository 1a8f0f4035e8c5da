package generator

// Prompt is sent verbatim with every edit request.
const Prompt = `Transform the person in the uploaded image into a cartoon version inspired by this reference image: https://i.ibb.co/vCyBhpgJ/lad.png

CRITICAL: PRESERVE ALL ORIGINAL CHARACTERISTICS - Keep ALL recognizable traits from the uploaded image so the person remains completely identifiable: exact skin tone/color (including non-human colors like green, blue, purple, etc.), precise hairstyle and hair color, facial structure, ALL clothing items and outfits, accessories (hats, glasses, jewelry, etc.), objects they're holding, background elements, and ANY fantasy or animal characteristics (ears, tails, wings, horns, scales, fur patterns, etc.). If the character has animal features, fantasy elements, or unusual skin colors, these MUST be maintained exactly.

Redraw them in the satirical parody style of the reference image with these CRITICAL FEATURES: an EXTREMELY RIDICULOUSLY LONG CHIN that extends dramatically downward (at least 4x normal length), massive oversized biceps and forearms, enormous chest muscles, huge thighs, and most importantly - position them in a WEIRD BIZARRE BODYBUILDER POSE with arms flexed in awkward unnatural angles, legs spread in an exaggerated wide stance or strange twisted position, angular nose, sharp jawline, exaggerated hair maintaining the ORIGINAL COLOR but in bright triangular spikes, and bold facial exaggerations. The chin should be absurdly elongated and prominent.

Apply bold black outlines, crooked/uneven lines, flat 2D coloring with no shading, and a rough, intentionally ugly comic aesthetic, like Microsoft Paint drawings. ALL clothing, accessories, objects, and background elements should match the original from the uploaded image but simplified into flat cartoon colors while maintaining their distinctive features and colors.

The result should blend the complete individuality and ALL characteristics of the uploaded image with the absurd, hyper-masculine parody style of the reference image, emphasizing the ridiculously long chin and weird bodybuilder pose while preserving EVERY detail that makes the original character unique.`
