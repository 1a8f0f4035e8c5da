package cost

// Edit pricing in USD per output image.
// Source: https://openai.com/api/pricing/

const CurrencyUSD = "USD"

type PricingKey struct {
	Model   string
	Size    string
	Quality string
}

var editPricing = map[PricingKey]float64{
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "low"}:    0.011,
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "medium"}: 0.042,
	{Model: "gpt-image-1", Size: "1024x1024", Quality: "high"}:   0.167,

	{Model: "gpt-image-1", Size: "1536x1024", Quality: "low"}:    0.016,
	{Model: "gpt-image-1", Size: "1536x1024", Quality: "medium"}: 0.063,
	{Model: "gpt-image-1", Size: "1536x1024", Quality: "high"}:   0.250,

	{Model: "gpt-image-1", Size: "1024x1536", Quality: "low"}:    0.016,
	{Model: "gpt-image-1", Size: "1024x1536", Quality: "medium"}: 0.063,
	{Model: "gpt-image-1", Size: "1024x1536", Quality: "high"}:   0.250,
}

type Estimate struct {
	PerImage float64
	Total    float64
	Currency string
	Known    bool
}

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Edit estimates the price of count edited images. Unknown combinations
// estimate to zero with Known unset.
func (c *Calculator) Edit(model, size, quality string, count int) Estimate {
	perImage, ok := editPricing[PricingKey{Model: model, Size: size, Quality: quality}]
	return Estimate{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
		Known:    ok,
	}
}
