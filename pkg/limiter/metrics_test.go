package limiter

// mockRecorder captures metrics in memory for assertion.
type mockRecorder struct {
	Counters map[string]float64
	Timings  map[string][]float64
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		Counters: make(map[string]float64),
		Timings:  make(map[string][]float64),
	}
}

func (m *mockRecorder) Add(name string, value float64, tags map[string]string) {
	m.Counters[name] += value
}

func (m *mockRecorder) Observe(name string, value float64, tags map[string]string) {
	m.Timings[name] = append(m.Timings[name], value)
}
