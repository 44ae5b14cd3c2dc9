package srs

// Algorithm names accepted in deck settings. SM-2 is the only implemented
// algorithm; FSRS is a future slot that deck settings may already name.
const (
	AlgorithmSM2  = "sm2"
	AlgorithmFSRS = "fsrs"
)

// resolveAlgorithm picks the algorithm tag for a result computed by SM-2.
// A recognized-but-unimplemented name keeps its tag so the review log shows
// what was requested; an unknown name is coerced to sm2. Both cases record a
// fallback marker in the data bag.
func resolveAlgorithm(name string, data Data) (string, Data) {
	if name == "" || name == AlgorithmSM2 {
		return AlgorithmSM2, data
	}

	if data == nil {
		data = Data{}
	}
	data["algorithm_used"] = AlgorithmSM2
	data["fallback"] = true

	if name == AlgorithmFSRS {
		return AlgorithmFSRS, data
	}
	return AlgorithmSM2, data
}
