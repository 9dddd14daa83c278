package backup

import (
	"encoding/json"
	"fmt"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/crypto"
)

// Codec turns a Backup into the bytes stored by a provider and back.
type Codec interface {
	Encode(b *Backup) ([]byte, error)
	Decode(data []byte) (*Backup, error)
	ContentType() string
}

// JSONCodec is the plain wire format.
type JSONCodec struct{}

func (JSONCodec) Encode(b *Backup) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (*Backup, error) {
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if b.Bookmarks == nil {
		b.Bookmarks = []bookmark.Bookmark{}
	}
	for i := range b.Bookmarks {
		if b.Bookmarks[i].Tags == nil {
			b.Bookmarks[i].Tags = []string{}
		}
	}
	return &b, nil
}

func (JSONCodec) ContentType() string { return "application/json" }

// AgeCodec wraps the JSON format in an armored age message. Decode also
// accepts plain JSON so backups written before encryption was enabled
// stay readable.
type AgeCodec struct {
	enc *crypto.Encryptor
}

// NewAgeCodec returns a codec encrypting with the key at keyPath.
func NewAgeCodec(keyPath string) *AgeCodec {
	return &AgeCodec{enc: crypto.NewEncryptor(keyPath)}
}

func (c *AgeCodec) Encode(b *Backup) ([]byte, error) {
	plain, err := JSONCodec{}.Encode(b)
	if err != nil {
		return nil, err
	}
	return c.enc.EncryptBytes(plain)
}

func (c *AgeCodec) Decode(data []byte) (*Backup, error) {
	if !crypto.IsArmored(data) {
		return JSONCodec{}.Decode(data)
	}
	plain, err := c.enc.DecryptBytes(data)
	if err != nil {
		return nil, err
	}
	return JSONCodec{}.Decode(plain)
}

func (c *AgeCodec) ContentType() string { return "text/plain" }
