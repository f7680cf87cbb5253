//go:build !windows

package cursor

import "fmt"

type unavailableProvider struct {
	buttons chan ButtonEvent
}

func newPlatformProvider() Provider {
	return &unavailableProvider{buttons: make(chan ButtonEvent)}
}

func (unavailableProvider) Poll() (Snapshot, error) {
	return Snapshot{}, fmt.Errorf("cursor tracking unavailable on this platform")
}

func (p *unavailableProvider) Buttons() <-chan ButtonEvent { return p.buttons }

func (p *unavailableProvider) Close() { close(p.buttons) }
