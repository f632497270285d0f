package core

// OutputPin is a digital output. machine.Pin satisfies it on TinyGo targets.
type OutputPin interface {
	Set(high bool)
}

// Pins groups the stepper driver outputs
type Pins struct {
	Step   OutputPin
	Dir    OutputPin
	Enable OutputPin // active low
}

// SimPin is an in-memory OutputPin that counts transitions
type SimPin struct {
	High  bool
	Rises uint32
	Falls uint32
}

func (p *SimPin) Set(high bool) {
	if high && !p.High {
		p.Rises++
	} else if !high && p.High {
		p.Falls++
	}
	p.High = high
}

// NewSimPins returns a Pins set backed by SimPins
func NewSimPins() (Pins, *SimPin, *SimPin, *SimPin) {
	step, dir, en := &SimPin{}, &SimPin{}, &SimPin{}
	return Pins{Step: step, Dir: dir, Enable: en}, step, dir, en
}
