package device

import (
	"context"
	"fmt"
	"sync"
)

// FakeController is an in-memory Controller for tests. Readings are set
// directly; commands are recorded so tests can assert on them. Individual
// reads can be made to fail to exercise the degraded paths.
type FakeController struct {
	mu sync.Mutex

	PeopleCountValue int
	PresenceValue    bool
	CallCountValue   int
	SoundLevelValue  int
	SharingValue     bool

	// FailReads makes every status read return an error
	FailReads bool
	// FailCommands makes every command return an error
	FailCommands bool

	Bookings map[string]*Booking

	PromptsShown      int
	PromptsCleared    int
	CountdownsShown   []int
	CountdownsCleared int
	Declined          []string
}

// NewFakeController creates an empty fake controller
func NewFakeController() *FakeController {
	return &FakeController{
		Bookings: make(map[string]*Booking),
	}
}

func (f *FakeController) PeopleCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return 0, fmt.Errorf("fake: people count unavailable")
	}
	return f.PeopleCountValue, nil
}

func (f *FakeController) PeoplePresence(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return false, fmt.Errorf("fake: presence unavailable")
	}
	return f.PresenceValue, nil
}

func (f *FakeController) CallCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return 0, fmt.Errorf("fake: call count unavailable")
	}
	return f.CallCountValue, nil
}

func (f *FakeController) SoundLevel(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return 0, fmt.Errorf("fake: sound level unavailable")
	}
	return f.SoundLevelValue, nil
}

func (f *FakeController) Sharing(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return false, fmt.Errorf("fake: sharing unavailable")
	}
	return f.SharingValue, nil
}

func (f *FakeController) ShowCheckInPrompt(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCommands {
		return fmt.Errorf("fake: prompt command failed")
	}
	f.PromptsShown++
	return nil
}

func (f *FakeController) ClearPrompt(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCommands {
		return fmt.Errorf("fake: prompt clear failed")
	}
	f.PromptsCleared++
	return nil
}

func (f *FakeController) ShowCountdown(_ context.Context, remainingSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCommands {
		return fmt.Errorf("fake: countdown command failed")
	}
	f.CountdownsShown = append(f.CountdownsShown, remainingSeconds)
	return nil
}

func (f *FakeController) ClearCountdown(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCommands {
		return fmt.Errorf("fake: countdown clear failed")
	}
	f.CountdownsCleared++
	return nil
}

func (f *FakeController) BookingDetails(_ context.Context, bookingID string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads {
		return nil, fmt.Errorf("fake: booking details unavailable")
	}
	booking, ok := f.Bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("fake: no details for booking %s", bookingID)
	}
	copied := *booking
	return &copied, nil
}

func (f *FakeController) DeclineBooking(_ context.Context, meetingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCommands {
		return fmt.Errorf("fake: decline command failed")
	}
	f.Declined = append(f.Declined, meetingID)
	return nil
}

// DeclineCount returns how many decline commands were issued
func (f *FakeController) DeclineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Declined)
}
