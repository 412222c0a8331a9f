// Package evaluation measures ranking quality against relevance judgments
// and persists one record per (run, cutoff) pair.
package evaluation

import "sort"

// Judgments maps a query id to the set of its relevant document ids.
type Judgments map[string]map[int]struct{}

// Add marks docID as relevant for queryID.
func (j Judgments) Add(queryID string, docID int) {
	set, ok := j[queryID]
	if !ok {
		set = make(map[int]struct{})
		j[queryID] = set
	}
	set[docID] = struct{}{}
}

// QueryScore holds the per-query values at one cutoff.
type QueryScore struct {
	AveragePrecision float64
	Recall           float64
}

type Result struct {
	K        int
	MAP      float64
	MAR      float64
	PerQuery map[string]QueryScore
}

// Evaluate computes MAP@k and MAR@k over every query present in results.
// Queries without judgments contribute 0 to both means.
func Evaluate(results map[string][]int, judgments Judgments, k int) Result {
	res := Result{K: k, PerQuery: make(map[string]QueryScore, len(results))}
	if len(results) == 0 {
		return res
	}
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sumAP, sumRecall float64
	for _, id := range ids {
		relevant, judged := judgments[id]
		var score QueryScore
		if judged {
			score.AveragePrecision = AveragePrecision(results[id], relevant, k)
			score.Recall = Recall(results[id], relevant, k)
		}
		res.PerQuery[id] = score
		sumAP += score.AveragePrecision
		sumRecall += score.Recall
	}
	res.MAP = sumAP / float64(len(ids))
	res.MAR = sumRecall / float64(len(ids))
	return res
}

// AveragePrecision averages precision@i over the ranks i <= k that hold a
// relevant document. It is 0 when none of the top k is relevant.
func AveragePrecision(ranked []int, relevant map[int]struct{}, k int) float64 {
	found := 0
	sum := 0.0
	for i, docID := range top(ranked, k) {
		if _, ok := relevant[docID]; !ok {
			continue
		}
		found++
		sum += float64(found) / float64(i+1)
	}
	if found == 0 {
		return 0
	}
	return sum / float64(found)
}

// Recall is the fraction of relevant documents that appear in the top k.
// A document ranked twice is counted once.
func Recall(ranked []int, relevant map[int]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	seen := make(map[int]struct{})
	for _, docID := range top(ranked, k) {
		if _, ok := relevant[docID]; ok {
			seen[docID] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(len(relevant))
}

func top(ranked []int, k int) []int {
	if k < len(ranked) {
		return ranked[:k]
	}
	return ranked
}
