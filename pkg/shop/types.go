package shop

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Credentials are the login inputs. They are never persisted.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CaptchaCode string `json:"captcha"`
}

// User is the opaque user record returned by the server.
type User map[string]interface{}

// Session is the live authenticated session.
type Session struct {
	Token string `json:"token" yaml:"token"`
	User  User   `json:"user"  yaml:"user"`
}

// Captcha is a one-time login challenge.
type Captcha struct {
	Image string `json:"captcha" yaml:"captcha"`
}

// Decode splits the data URI into its MIME type and raw bytes.
func (c *Captcha) Decode() (string, []byte, error) {
	rest, ok := strings.CutPrefix(c.Image, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(data)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
		}

		return mimeType, []byte(decoded), nil
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}

	return mimeType, raw, nil
}

// Flag is a boolean the server may encode as true/false, 0/1 or "0"/"1".
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)

	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}

	return nil
}

// Decimal is a number the server may encode as a JSON number or string.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*d = 0

		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}

	*d = Decimal(v)

	return nil
}

// String formats the decimal without trailing zeros.
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

// Product is a catalog product.
type Product struct {
	ID          int     `json:"id"                  yaml:"id"`
	Name        string  `json:"name"                yaml:"name"`
	Description string  `json:"description"         yaml:"description"`
	Price       Decimal `json:"price"               yaml:"price"`
	Stock       int     `json:"stock"               yaml:"stock"`
	CategoryID  *int    `json:"category_id"         yaml:"category_id"`
	IsAvailable Flag    `json:"is_available"        yaml:"is_available"`
	ImageURL    string  `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// Category is a product category.
type Category struct {
	ID   int    `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// FormFile is a file part of a multipart form. Content is held in memory so
// the form can be encoded again when a request is replayed.
type FormFile struct {
	FieldName string
	FileName  string
	Content   []byte
}

// Form is a multipart form payload.
type Form struct {
	Fields url.Values
	Files  []FormFile
}

// NewForm creates an empty form.
func NewForm() *Form {
	return &Form{Fields: url.Values{}}
}

// Set sets a text field.
func (f *Form) Set(key, value string) *Form {
	f.Fields.Set(key, value)

	return f
}

// AddFile attaches a file part.
func (f *Form) AddFile(fieldName, fileName string, content []byte) *Form {
	f.Files = append(f.Files, FormFile{FieldName: fieldName, FileName: fileName, Content: content})

	return f
}

// FormEncoder is implemented by write payloads of resource collections.
type FormEncoder interface {
	Form() *Form
}

// ProductInput is the create/update payload for a product.
type ProductInput struct {
	Name         string
	Description  string
	Price        float64
	Stock        int
	CategoryID   *int
	IsAvailable  bool
	Image        *FormFile
	ImageDeleted bool
}

// Form implements FormEncoder.
func (p *ProductInput) Form() *Form {
	form := NewForm().
		Set("name", strings.TrimSpace(p.Name)).
		Set("description", strings.TrimSpace(p.Description)).
		Set("price", strconv.FormatFloat(p.Price, 'f', -1, 64)).
		Set("stock", strconv.Itoa(p.Stock)).
		Set("is_available", boolField(p.IsAvailable))

	if p.CategoryID != nil {
		form.Set("category_id", strconv.Itoa(*p.CategoryID))
	}

	switch {
	case p.Image != nil:
		name := p.Image.FieldName
		if name == "" {
			name = "image"
		}

		form.AddFile(name, p.Image.FileName, p.Image.Content)
	case p.ImageDeleted:
		form.Set("image_deleted", "1")
	}

	return form
}

// Input returns a write payload carrying the product's current values, so an
// update can change single fields. The stored image is kept.
func (p *Product) Input() *ProductInput {
	return &ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       float64(p.Price),
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		IsAvailable: bool(p.IsAvailable),
	}
}

// CategoryInput is the create/update payload for a category.
type CategoryInput struct {
	Name string
}

// Form implements FormEncoder.
func (c *CategoryInput) Form() *Form {
	return NewForm().Set("name", strings.TrimSpace(c.Name))
}

func boolField(v bool) string {
	if v {
		return "1"
	}

	return "0"
}

// MarshalJSON keeps the decimal a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}
