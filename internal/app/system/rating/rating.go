// Package rating holds the running-average arithmetic used for student
// rating aggregates. Every change to a stored average goes through one of
// these functions; nothing recomputes a lifetime average from scratch.
package rating

// IncrementalAverage folds one new value into a running average.
//
//	newAvg = (oldAvg*oldCount + value) / (oldCount+1)
func IncrementalAverage(oldAvg float64, oldCount int, value float64) (float64, int) {
	if oldCount < 0 {
		oldCount = 0
	}
	n := oldCount + 1
	return (oldAvg*float64(oldCount) + value) / float64(n), n
}

// ReviseAverage replaces one previously folded value with another without
// changing the count. Used when a reviewer resubmits their review.
func ReviseAverage(avg float64, count int, oldValue, newValue float64) float64 {
	if count <= 0 {
		return newValue
	}
	return avg + (newValue-oldValue)/float64(count)
}
