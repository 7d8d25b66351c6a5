package crypto

// BlobVersion is the current serialization format version
const BlobVersion = 1

// blobHeaderSize is the fixed header: version(1) + nonce length(1)
const blobHeaderSize = 2

// Blob is an authenticated ciphertext envelope. The tag authenticates
// nonce and ciphertext under the encryption key.
type Blob struct {
	Version    byte
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Serialize encodes the blob as version(1) + nonceLen(1) + nonce +
// ciphertext + tag.
func (b *Blob) Serialize() []byte {
	out := make([]byte, 0, blobHeaderSize+len(b.Nonce)+len(b.Ciphertext)+len(b.Tag))
	out = append(out, b.Version, byte(len(b.Nonce)))
	out = append(out, b.Nonce...)
	out = append(out, b.Ciphertext...)
	out = append(out, b.Tag...)
	return out
}

// Deserialize parses a serialized blob, validating length and version.
// Returns ErrMalformed for anything it cannot account for byte by byte.
func Deserialize(data []byte) (*Blob, error) {
	if len(data) < blobHeaderSize {
		return nil, ErrMalformed
	}

	version := data[0]
	if version != BlobVersion {
		return nil, ErrMalformed
	}

	nonceLen := int(data[1])
	if nonceLen != NonceSize {
		return nil, ErrMalformed
	}

	// Header, nonce, and tag are mandatory; ciphertext may be empty
	if len(data) < blobHeaderSize+nonceLen+TagSize {
		return nil, ErrMalformed
	}

	body := data[blobHeaderSize:]
	nonce := body[:nonceLen]
	rest := body[nonceLen:]
	ct := rest[:len(rest)-TagSize]
	tag := rest[len(rest)-TagSize:]

	return &Blob{
		Version:    version,
		Nonce:      append([]byte(nil), nonce...),
		Ciphertext: append([]byte(nil), ct...),
		Tag:        append([]byte(nil), tag...),
	}, nil
}
