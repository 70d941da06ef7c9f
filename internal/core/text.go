package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold trims, lower-cases and strips diacritics so that "Hóspedes " and
// "hospedes" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

var channelAliases = map[string]Channel{
	"online-travel-agency": ChannelOTA,
	"ota":                  ChannelOTA,
	"booking":              ChannelOTA,
	"booking.com":          ChannelOTA,
	"airbnb":               ChannelOTA,
	"hostelworld":          ChannelOTA,
	"expedia":              ChannelOTA,
	"direct-phone":         ChannelPhone,
	"telefone":             ChannelPhone,
	"phone":                ChannelPhone,
	"direto":               ChannelPhone,
	"messaging-app":        ChannelMessaging,
	"whatsapp":             ChannelMessaging,
	"instagram":            ChannelMessaging,
	"mensagem":             ChannelMessaging,
}

var paymentAliases = map[string]PaymentMethod{
	"cash":              PaymentCash,
	"dinheiro":          PaymentCash,
	"especie":           PaymentCash,
	"pix-transfer":      PaymentPix,
	"pix":               PaymentPix,
	"credit":            PaymentCredit,
	"credito":           PaymentCredit,
	"cartao de credito": PaymentCredit,
	"debit":             PaymentDebit,
	"debito":            PaymentDebit,
	"cartao de debito":  PaymentDebit,
}

// ParseChannel maps a free-form channel label to its canonical value. Unknown
// labels come back folded with ok=false so callers can flag them.
func ParseChannel(s string) (Channel, bool) {
	key := Fold(s)
	if c, ok := channelAliases[key]; ok {
		return c, true
	}
	return Channel(key), false
}

// ParsePaymentMethod is the payment counterpart of ParseChannel.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	key := Fold(s)
	if p, ok := paymentAliases[key]; ok {
		return p, true
	}
	return PaymentMethod(key), false
}

// Channels lists the canonical booking channels.
func Channels() []Channel {
	return []Channel{ChannelOTA, ChannelPhone, ChannelMessaging}
}

// PaymentMethods lists the canonical payment methods.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentPix, PaymentCredit, PaymentDebit}
}
