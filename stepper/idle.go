package stepper

// IsBusy reports whether the pipeline has a move in flight between prep
// and load, the stepper half of quiescence (§4.6.3 "Quiescent").
func (p *Pipeline) IsBusy() bool {
	return p.moveQueued.Load() || p.moveReady.Load()
}
