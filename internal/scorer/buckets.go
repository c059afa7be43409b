package scorer

// #region bucket-config
// BucketConfig sets the boundaries that quantize the continuous meaning
// and strain values into a 3x3 grid before they enter oracle context.
// Values below LowCut are "low", below HighCut "mid", otherwise "high".
type BucketConfig struct {
	LowCut  float64
	HighCut float64
}

// DefaultBucketConfig splits the [0, 10] range into thirds.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{LowCut: 3.3, HighCut: 6.6}
}

func (c BucketConfig) bucket(v float64) int {
	switch {
	case v < c.LowCut:
		return 0
	case v < c.HighCut:
		return 1
	default:
		return 2
	}
}
// #endregion bucket-config

// #region descriptions
// Rows are meaning buckets (low, mid, high), columns strain buckets.
// The text is what the judge and generator see, so it describes the
// psychological condition rather than naming the axes.
var bucketDescriptions = [3][3]string{
	{ // low meaning
		"adrift and unmotivated, though not under pressure",
		"going through the motions under mounting pressure",
		"burned out: little sense of purpose and heavy strain",
	},
	{ // mid meaning
		"settled, with a workable sense of direction",
		"managing: purpose intact but stress is taking a toll",
		"strained: holding onto direction while under heavy load",
	},
	{ // high meaning
		"fulfilled and at ease, driven by clear purpose",
		"engaged and purposeful despite noticeable pressure",
		"running on conviction: strong purpose carrying severe strain",
	},
}

// Describe maps a (meaning, strain) pair to its bucket's semantic
// description.
func (c BucketConfig) Describe(meaning, strain float64) string {
	return bucketDescriptions[c.bucket(meaning)][c.bucket(strain)]
}

// AffectBand names the coarse emotional register for an affect value,
// used when judging whether a response's expressed emotion fits.
func (c BucketConfig) AffectBand(affect float64) string {
	switch c.bucket(affect) {
	case 0:
		return "subdued"
	case 1:
		return "steady"
	default:
		return "elevated"
	}
}
// #endregion descriptions
