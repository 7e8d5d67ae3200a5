package hotkey

type FakeHotkey struct {
	keydown    chan struct{}
	keyup      chan struct{}
	registered bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error          { f.registered = true; return nil }
func (f *FakeHotkey) Unregister()              { f.registered = false }
func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }
func (f *FakeHotkey) Registered() bool         { return f.registered }
func (f *FakeHotkey) String() string           { return "fake" }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }
