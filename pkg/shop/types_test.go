package shop_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

func TestFlag_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`1`, true, false},
		{`0`, false, false},
		{`"1"`, true, false},
		{`"0"`, false, false},
		{`null`, false, false},
		{`"yes"`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var flag shop.Flag

			err := json.Unmarshal([]byte(tt.input), &flag)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(flag))
		})
	}
}

func TestDecimal(t *testing.T) {
	t.Parallel()

	var values struct {
		A shop.Decimal `json:"a"`
		B shop.Decimal `json:"b"`
		C shop.Decimal `json:"c"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"49.90","b":12,"c":null}`), &values))
	assert.InDelta(t, 49.9, float64(values.A), 0.0001)
	assert.InDelta(t, 12.0, float64(values.B), 0.0001)
	assert.Zero(t, float64(values.C))
	assert.Equal(t, "49.9", values.A.String())

	out, err := json.Marshal(values.A)
	require.NoError(t, err)
	assert.JSONEq(t, `49.9`, string(out))

	var bad shop.Decimal
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func TestCaptcha_Decode(t *testing.T) {
	t.Parallel()

	mimeType, data, err := (&shop.Captcha{Image: "data:image/png;base64,iVBORw0KGgo="}).Decode()
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, data)

	mimeType, data, err = (&shop.Captcha{Image: "data:,Q7X2%20"}).Decode()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mimeType)
	assert.Equal(t, "Q7X2 ", string(data))

	_, _, err = (&shop.Captcha{Image: "https://example.com/captcha.png"}).Decode()
	require.ErrorIs(t, err, shop.ErrInvalidDataURI)

	_, _, err = (&shop.Captcha{Image: "data:image/png;base64"}).Decode()
	require.ErrorIs(t, err, shop.ErrInvalidDataURI)

	_, _, err = (&shop.Captcha{Image: "data:image/png;base64,!!!"}).Decode()
	require.ErrorIs(t, err, shop.ErrInvalidDataURI)
}

func TestProductInput_Form(t *testing.T) {
	t.Parallel()

	categoryID := 3
	input := &shop.ProductInput{
		Name:        "  Lamp ",
		Description: " Brass ",
		Price:       19.5,
		Stock:       4,
		CategoryID:  &categoryID,
		IsAvailable: true,
		Image:       &shop.FormFile{FileName: "lamp.jpg", Content: []byte("jpg")},
	}

	form := input.Form()
	assert.Equal(t, "Lamp", form.Fields.Get("name"))
	assert.Equal(t, "Brass", form.Fields.Get("description"))
	assert.Equal(t, "19.5", form.Fields.Get("price"))
	assert.Equal(t, "4", form.Fields.Get("stock"))
	assert.Equal(t, "3", form.Fields.Get("category_id"))
	assert.Equal(t, "1", form.Fields.Get("is_available"))
	assert.NotContains(t, form.Fields, "image_deleted")
	require.Len(t, form.Files, 1)
	assert.Equal(t, "image", form.Files[0].FieldName)
	assert.Equal(t, "lamp.jpg", form.Files[0].FileName)

	input.Image = nil
	input.ImageDeleted = true
	input.CategoryID = nil
	input.IsAvailable = false

	form = input.Form()
	assert.Equal(t, "1", form.Fields.Get("image_deleted"))
	assert.Equal(t, "0", form.Fields.Get("is_available"))
	assert.NotContains(t, form.Fields, "category_id")
	assert.Empty(t, form.Files)
}

func TestProduct_Input(t *testing.T) {
	t.Parallel()

	categoryID := 1
	product := &shop.Product{
		ID:          9,
		Name:        "Chair",
		Description: "Oak",
		Price:       49.9,
		Stock:       12,
		CategoryID:  &categoryID,
		IsAvailable: true,
		ImageURL:    "/storage/products/chair.png",
	}

	input := product.Input()
	assert.Equal(t, "Chair", input.Name)
	assert.InDelta(t, 49.9, input.Price, 0.0001)
	assert.Equal(t, 12, input.Stock)
	assert.Equal(t, &categoryID, input.CategoryID)
	assert.True(t, input.IsAvailable)
	assert.Nil(t, input.Image)
	assert.False(t, input.ImageDeleted)
}

func TestCategoryInput_Form(t *testing.T) {
	t.Parallel()

	form := (&shop.CategoryInput{Name: " Lighting "}).Form()
	assert.Equal(t, "Lighting", form.Fields.Get("name"))
	assert.Empty(t, form.Files)
}

func TestSessionState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unauthenticated", shop.StateUnauthenticated.String())
	assert.Equal(t, "authenticated", shop.StateAuthenticated.String())
	assert.Equal(t, "refreshing", shop.StateRefreshing.String())
}
