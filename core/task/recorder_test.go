package task_test

import "sync"

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	bytes    int
	results  []string
}

func (r *recorder) ObserveRead(outcome string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.bytes += n
}

func (r *recorder) ObserveFinish(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recorder) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func (r *recorder) Results() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...)
}
