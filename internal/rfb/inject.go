package rfb

import "context"

// Inject runs the full sequence against addr: connect, handshake,
// type the password, disconnect. The password buffer is not retained.
func Inject(ctx context.Context, opts Options, password []byte) error {
	in := New(opts)
	defer in.Close()

	if err := in.Connect(ctx); err != nil {
		return err
	}
	if err := in.ExchangeVersions(); err != nil {
		return err
	}
	if err := in.NegotiateSecurity(); err != nil {
		return err
	}
	if err := in.Initialize(); err != nil {
		return err
	}
	return in.TypePassword(password)
}
