//go:build !darwin

package keychain

// unsupportedService fails every call. envchain stores secrets in the macOS
// Keychain only; there is no fallback store on other platforms.
type unsupportedService struct{}

// NewSystemService returns a Service whose every call fails with
// ErrUnsupported.
func NewSystemService() Service {
	return unsupportedService{}
}

func (unsupportedService) Open(string) error { return ErrUnsupported }
func (unsupportedService) Close() error { return nil }
func (unsupportedService) Find(string, string) (Item, error) { return Item{}, ErrUnsupported }
func (unsupportedService) Add(Item, []byte) error { return ErrUnsupported }
func (unsupportedService) Update(Item, []byte) error { return ErrUnsupported }
func (unsupportedService) Delete(Item) error { return ErrUnsupported }
func (unsupportedService) Query(Query) ([]Item, error) { return nil, ErrUnsupported }
func (unsupportedService) Data(Item) ([]byte, error) { return nil, ErrUnsupported }
func (unsupportedService) CopyAccess(Item) (*Access, error) { return nil, ErrUnsupported }
func (unsupportedService) SetAccess(Item, *Access) error { return ErrUnsupported }
