package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price    string
		category domain.Category
		want     string
	}{
		{"1200", domain.CategoryRent, "$1,200/mo"},
		{"1200", domain.CategoryHouse, "$1,200"},
		{"250000.49", domain.CategoryLand, "$250,000"},
		{"99.5", domain.CategoryPhone, "$100"},
		{"0", domain.CategoryPhone, "$0"},
		{"1200abc", domain.CategoryPhone, "$1,200"},
		{"  75", domain.CategoryRent, "$75/mo"},
		{"-1500", domain.CategoryPhone, "-$1,500"},
		{"-0.4", domain.CategoryPhone, "-$0"},
		{"1e18", domain.CategoryHouse, "$1,000,000,000,000,000,000"},
		{"1e20", domain.CategoryRent, "$100,000,000,000,000,000,000/mo"},
		{"12345678901234567890", domain.CategoryLand, "$12,345,678,901,234,567,168"},
		{"Infinity", domain.CategoryPhone, "$∞"},
		{"-Infinity", domain.CategoryRent, "-$∞/mo"},
		{"1e400", domain.CategoryPhone, "$∞"},
		{"abc", domain.CategoryPhone, "abc"},
		{"abc", domain.CategoryRent, "abc"},
		{"", domain.CategoryPhone, ""},
		{"Negotiable", domain.CategoryHouse, "Negotiable"},
	}
	for _, tt := range tests {
		t.Run(tt.price+"/"+string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.price, tt.category))
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 90)
	got := Truncate(long, DescriptionLimit)
	assert.Equal(t, strings.Repeat("a", 80)+"…", got)
	assert.Equal(t, 81, utf8.RuneCountInString(got))

	exact := strings.Repeat("b", 80)
	assert.Equal(t, exact, Truncate(exact, DescriptionLimit))
	assert.Equal(t, "", Truncate("", DescriptionLimit))

	accented := strings.Repeat("é", 85)
	assert.Equal(t, 81, utf8.RuneCountInString(Truncate(accented, DescriptionLimit)))
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "📱 Phone", CategoryLabel(domain.CategoryPhone))
	assert.Equal(t, "🏡 House", CategoryLabel(domain.CategoryHouse))
	assert.Equal(t, "boat", CategoryLabel("boat"))
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t,
		"https://ui-avatars.com/api/?name=Jane%20Doe&background=006AFF&color=fff&size=24",
		AvatarURL("Jane Doe", 24))
	assert.Equal(t,
		"https://ui-avatars.com/api/?name=User&background=006AFF&color=fff&size=24",
		AvatarURL("", 24))
}

func TestCard(t *testing.T) {
	t.Run("fallbacks", func(t *testing.T) {
		card := Card(&domain.Listing{ID: "abc", Title: "Plot", Category: domain.CategoryLand, Price: "5000"})

		assert.Equal(t, "/listings/abc", card.DetailURL)
		assert.Equal(t, PlaceholderImage, card.CoverImage)
		assert.Equal(t, "Location not set", card.LocationName)
		assert.Equal(t, "Anonymous", card.OwnerName)
		assert.Equal(t, AvatarURL("", 24), card.OwnerAvatar)
		assert.Equal(t, "🌍 Land", card.CategoryLabel)
		assert.Equal(t, "$5,000", card.Price)
	})

	t.Run("populated", func(t *testing.T) {
		card := Card(&domain.Listing{
			ID:          "x1",
			Title:       "Flat",
			Category:    domain.CategoryRent,
			Price:       "900",
			Description: strings.Repeat("d", 100),
			Images:      []string{"https://cdn/cover.jpg", "https://cdn/2.jpg"},
			Location:    domain.Location{Name: "Lagos"},
			Owner:       domain.Owner{Name: "Ada", PhotoURL: "https://img/ada.png"},
		})

		assert.Equal(t, "https://cdn/cover.jpg", card.CoverImage)
		assert.Equal(t, "$900/mo", card.Price)
		assert.Equal(t, "Lagos", card.LocationName)
		assert.Equal(t, "Ada", card.OwnerName)
		assert.Equal(t, "https://img/ada.png", card.OwnerAvatar)
		assert.True(t, strings.HasSuffix(card.Description, "…"))
	})

	t.Run("owner without photo gets avatar keyed by name", func(t *testing.T) {
		card := Card(&domain.Listing{Owner: domain.Owner{Name: "Bo"}})
		assert.Contains(t, card.OwnerAvatar, "name=Bo&")
	})
}
