// Package render turns listings into display models. Nothing here performs I/O.
package render

import (
	"errors"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

const (
	PlaceholderImage  = "https://placehold.co/400x260/e8f0fe/006AFF?text=No+Image"
	DescriptionLimit  = 80
	Ellipsis          = "…"
	AnonymousOwner    = "Anonymous"
	LocationNotSet    = "Location not set"
	RentSuffix        = "/mo"
	DetailPathPrefix  = "/listings/"
	defaultAvatarName = "User"
	avatarBaseURL     = "https://ui-avatars.com/api/"
	avatarBackground  = "006AFF"
	avatarForeground  = "fff"
	cardAvatarSize    = 24
)

var categoryLabels = map[domain.Category]string{
	domain.CategoryPhone: "📱 Phone",
	domain.CategoryLand:  "🌍 Land",
	domain.CategoryRent:  "🏠 Rent",
	domain.CategoryHouse: "🏡 House",
}

// CardView is everything a feed card shows.
type CardView struct {
	ID            string
	DetailURL     string
	CoverImage    string
	Title         string
	Price         string
	Category      domain.Category
	CategoryLabel string
	LocationName  string
	Description   string
	OwnerName     string
	OwnerAvatar   string
}

func Card(l *domain.Listing) CardView {
	ownerName := strings.TrimSpace(l.Owner.Name)
	if ownerName == "" {
		ownerName = AnonymousOwner
	}
	avatar := l.Owner.PhotoURL
	if avatar == "" {
		avatar = AvatarURL(l.Owner.Name, cardAvatarSize)
	}
	cover := l.Cover()
	if cover == "" {
		cover = PlaceholderImage
	}
	location := l.Location.Name
	if location == "" {
		location = LocationNotSet
	}

	return CardView{
		ID:            l.ID,
		DetailURL:     DetailURL(l.ID),
		CoverImage:    cover,
		Title:         l.Title,
		Price:         FormatPrice(l.Price, l.Category),
		Category:      l.Category,
		CategoryLabel: CategoryLabel(l.Category),
		LocationName:  location,
		Description:   Truncate(l.Description, DescriptionLimit),
		OwnerName:     ownerName,
		OwnerAvatar:   avatar,
	}
}

// Cards renders listings in feed order.
func Cards(listings []*domain.Listing) []CardView {
	out := make([]CardView, 0, len(listings))
	for _, l := range listings {
		out = append(out, Card(l))
	}
	return out
}

func DetailURL(id string) string {
	return DetailPathPrefix + url.PathEscape(id)
}

// CategoryLabel maps a tag to its label; unknown tags pass through.
func CategoryLabel(c domain.Category) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// numericPrefix accepts what a lenient decimal parser would: an optional sign,
// then Infinity or digits with an optional fraction and exponent.
var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders price as whole US dollars, with "/mo" for rentals.
// Text with no leading number is returned unchanged.
func FormatPrice(price string, category domain.Category) string {
	value, ok := parsePrice(price)
	if !ok {
		return price
	}
	rounded := math.Round(value)
	sign := ""
	if math.Signbit(rounded) {
		sign = "-"
		rounded = math.Abs(rounded)
	}
	digits := usd.Sprint(number.Decimal(rounded, number.MaxFractionDigits(0)))
	formatted := sign + "$" + digits
	if category == domain.CategoryRent {
		formatted += RentSuffix
	}
	return formatted
}

func parsePrice(price string) (float64, bool) {
	m := numericPrefix.FindString(strings.TrimLeft(price, " \t\n\r"))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// Truncate cuts s to limit characters plus an ellipsis.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + Ellipsis
}

// AvatarURL is the generated placeholder avatar for name.
func AvatarURL(name string, size int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultAvatarName
	}
	return avatarBaseURL + "?name=" + encodeComponent(name) +
		"&background=" + avatarBackground +
		"&color=" + avatarForeground +
		"&size=" + strconv.Itoa(size)
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
