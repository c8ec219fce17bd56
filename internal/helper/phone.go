package helper

import (
	"errors"
	"regexp"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// ChannelSuffix is the address marker clients append to phone numbers.
const ChannelSuffix = "@c.us"

var ErrInvalidNumber = errors.New("invalid phone number")

var (
	validFormat = regexp.MustCompile(`^[\d\s\+\-\(\)]+$`)
	nonDigit    = regexp.MustCompile(`[^\d]`)
)

// FormatRecipient converts a phone number, with or without a channel
// suffix, to a WhatsApp user JID.
func FormatRecipient(number string) (types.JID, error) {
	number = strings.TrimSpace(number)
	if at := strings.Index(number, "@"); at >= 0 {
		server := number[at+1:]
		if server != "c.us" && server != types.DefaultUserServer {
			return types.JID{}, errors.Join(ErrInvalidNumber, errors.New("unsupported address domain "+server))
		}
		number = number[:at]
	}

	if number == "" || !validFormat.MatchString(number) {
		return types.JID{}, errors.Join(ErrInvalidNumber, errors.New("contains invalid characters"))
	}

	cleaned := nonDigit.ReplaceAllString(number, "")
	// E.164 allows at most 15 digits
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return types.JID{}, errors.Join(ErrInvalidNumber, errors.New("invalid length"))
	}

	return types.NewJID(cleaned, types.DefaultUserServer), nil
}

func ExtractPhoneFromJID(jid string) string {
	// "573001234567:12@s.whatsapp.net" -> "573001234567"
	atSplit := strings.SplitN(jid, "@", 2)
	beforeAt := atSplit[0]
	colonSplit := strings.SplitN(beforeAt, ":", 2)
	return colonSplit[0]
}
