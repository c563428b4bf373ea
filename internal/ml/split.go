package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// NewRand returns a deterministic random source for a seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// TrainTestSplit shuffles the indices 0..n-1 and splits them so that the test side
// holds ceil(testSize*n) indices. Both sides keep permutation order.
func TrainTestSplit(n int, testSize float64, rng *rand.Rand) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain <= 0 || nTest <= 0 {
		return nil, nil, fmt.Errorf("with n_samples=%d and test_size=%g the resulting train set would be empty", n, testSize)
	}

	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Fold is one train/test partition of a cross-validation split
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold partitions samples into k folds that preserve the class
// proportions, without shuffling. Classes are ranked by first appearance and
// distributed round-robin over the class-sorted labels, so fold sizes differ by
// at most one.
func StratifiedKFold(labels []Label, k int) ([]Fold, error) {
	n := len(labels)
	if k < 2 {
		return nil, fmt.Errorf("k-fold cross-validation requires at least 2 splits, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("cannot have number of splits %d greater than the number of samples %d", k, n)
	}

	classOf := make(map[Label]int)
	encoded := make([]int, n)
	var counts []int
	for i, l := range labels {
		c, ok := classOf[l]
		if !ok {
			c = len(counts)
			classOf[l] = c
			counts = append(counts, 0)
		}
		encoded[i] = c
		counts[c]++
	}

	largest := counts[0]
	for _, c := range counts[1:] {
		if c > largest {
			largest = c
		}
	}
	if largest < k {
		return nil, fmt.Errorf("number of splits %d cannot be greater than the number of members in each class", k)
	}

	// classAt maps a position in the class-sorted label sequence to its class
	bounds := make([]int, len(counts))
	total := 0
	for c, count := range counts {
		total += count
		bounds[c] = total
	}
	classAt := func(pos int) int {
		return sort.SearchInts(bounds, pos+1)
	}

	// allocation[f][c] is how many samples of class c land in fold f
	allocation := make([][]int, k)
	for f := range allocation {
		allocation[f] = make([]int, len(counts))
		for pos := f; pos < n; pos += k {
			allocation[f][classAt(pos)]++
		}
	}

	testFold := make([]int, n)
	next := make([]int, len(counts))
	remaining := make([]int, len(counts))
	for c := range counts {
		remaining[c] = allocation[0][c]
	}
	for i, c := range encoded {
		for remaining[c] == 0 {
			next[c]++
			remaining[c] = allocation[next[c]][c]
		}
		testFold[i] = next[c]
		remaining[c]--
	}

	folds := make([]Fold, k)
	for i, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds, nil
}
