package shell

// ModalKind names a modal dialog.
type ModalKind string

const (
	ModalSignup ModalKind = "signup"
	ModalLogin  ModalKind = "login"
)

type setModal struct {
	kind ModalKind
	open bool
}

func (a setModal) Reduce(prev State) State {
	next := prev
	modals := make(map[ModalKind]bool, len(prev.UI.Modals)+1)
	for k, v := range prev.UI.Modals {
		modals[k] = v
	}
	modals[a.kind] = a.open
	next.UI.Modals = modals
	return next
}

// OpenModal shows the modal of kind.
func OpenModal(kind ModalKind) Action { return setModal{kind: kind, open: true} }

// CloseModal hides the modal of kind.
func CloseModal(kind ModalKind) Action { return setModal{kind: kind, open: false} }

// Modal is the host of one modal dialog. Its overlay is mounted while IsOpen.
type Modal struct {
	store *Store
	kind  ModalKind
}

// NewModal binds a modal host to store.
func NewModal(store *Store, kind ModalKind) *Modal {
	return &Modal{store: store, kind: kind}
}

func (m *Modal) Kind() ModalKind { return m.kind }

func (m *Modal) IsOpen() bool { return SelectModalOpen(m.store.State(), m.kind) }

// Open is the trigger button.
func (m *Modal) Open() { m.store.Dispatch(OpenModal(m.kind)) }

// Close is the explicit close control.
func (m *Modal) Close() { m.store.Dispatch(CloseModal(m.kind)) }

// RequestClose is the overlay's dismissal callback.
func (m *Modal) RequestClose() { m.store.Dispatch(CloseModal(m.kind)) }
