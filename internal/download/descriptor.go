package download

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"aaxsplit/internal/fileutil"
	"aaxsplit/internal/services"
)

// Supported container flavours, keyed by the descriptor value that offers them.
var (
	supportedAWTypes = map[string]string{"aax": "aax"}
	supportedCodecs  = map[string]string{"mp332": "mp332"}
)

// Descriptor holds the key/value pairs of an .adh file in file order.
type Descriptor struct {
	keys   []string
	values map[string]string
}

// ParseDescriptor parses descriptor text. Empty segments are ignored; a
// segment without '=' is an error.
func ParseDescriptor(text string) (Descriptor, error) {
	d := Descriptor{values: make(map[string]string)}
	for _, part := range strings.Split(strings.TrimSpace(text), "&") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Descriptor{}, services.Wrap(services.ErrValidation, "descriptor", "parse", fmt.Sprintf("malformed segment %q", part), nil)
		}
		if _, exists := d.values[key]; !exists {
			d.keys = append(d.keys, key)
		}
		d.values[key] = value
	}
	return d, nil
}

// ReadDescriptor parses the descriptor stored at path.
func ReadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	return ParseDescriptor(string(data))
}

// Get returns the value stored under key.
func (d Descriptor) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in file order.
func (d Descriptor) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Domain returns the store domain the descriptor was issued by.
func (d Descriptor) Domain() string {
	return d.values["domain"]
}

// ProductID returns the catalog identifier, or "" when the descriptor names
// none.
func (d Descriptor) ProductID() string {
	if id := d.values["product_id"]; id != "null" {
		return id
	}
	return ""
}

// Validate checks that the descriptor names its domain and product.
func (d Descriptor) Validate() error {
	for _, key := range []string{"domain", "product_id"} {
		if _, ok := d.values[key]; !ok {
			return services.Wrap(services.ErrValidation, "descriptor", "validate", "missing "+key, nil)
		}
	}
	return nil
}

// Extension reports the file extension of the offered container, or an error
// wrapping services.ErrUnsupportedFile when the flavour cannot be converted.
func (d Descriptor) Extension() (string, error) {
	awtype, ok := d.values["awtype"]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "descriptor", "compatibility", "missing awtype", nil)
	}
	codec, ok := d.values["codec"]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "descriptor", "compatibility", "missing codec", nil)
	}
	if ext, ok := supportedAWTypes[strings.ToLower(awtype)]; ok {
		return ext, nil
	}
	if ext, ok := supportedCodecs[strings.ToLower(codec)]; ok {
		return ext, nil
	}
	return "", services.Wrap(services.ErrUnsupportedFile, "descriptor", "compatibility",
		fmt.Sprintf("awtype %q codec %q", awtype, codec), nil)
}

// Encode renders the descriptor as a URL query string in file order.
func (d Descriptor) Encode() string {
	parts := make([]string, 0, len(d.keys))
	for _, key := range d.keys {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(d.values[key]))
	}
	return strings.Join(parts, "&")
}

// Target returns the container path for a descriptor stored at descriptorPath.
func Target(d Descriptor, descriptorPath string) (string, error) {
	ext, err := d.Extension()
	if err != nil {
		return "", err
	}
	return fileutil.StripExt(descriptorPath) + "." + ext, nil
}
