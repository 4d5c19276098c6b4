package ml

// FeatureCount is the width of the vector the trained model expects.
const FeatureCount = 6

// FeatureVector is ordered [age, sex, bmi, children, smoker, region].
// The order is fixed by the trained artifact; reordering does not fail,
// it silently produces wrong predictions.
type FeatureVector [FeatureCount]float64

var sexCode = [...]float64{SexFemale: 0.0, SexMale: 1.0}

var smokerCode = [...]float64{SmokerNo: 0.0, SmokerYes: 1.0}

// Region constants are per-region target means from the training data,
// not one-hot indicators.
var regionCode = [...]float64{
	RegionSouthwest: 0.2430,
	RegionSoutheast: 0.2722,
	RegionNortheast: 0.2423,
	RegionNorthwest: 0.2722,
}

// Encode maps a validated profile to its feature vector.
func Encode(p PatientProfile) FeatureVector {
	return FeatureVector{
		float64(p.Age),
		sexCode[p.Sex],
		p.BMI,
		float64(p.Children),
		smokerCode[p.Smoker],
		regionCode[p.Region],
	}
}

func FeatureNames() []string {
	return []string{
		"age",
		"sex",
		"bmi",
		"children",
		"smoker",
		"region",
	}
}

// Row returns the vector as a single-row batch.
func (f FeatureVector) Row() [][]float64 {
	row := make([]float64, FeatureCount)
	copy(row, f[:])
	return [][]float64{row}
}
