package narrator

import (
	"fmt"

	"group-lab/errors"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	keyMemberJoined    = "%s joined the group."
	keyMemberLeft      = "%s left the group."
	keyNameChanged     = "Title is now '%s'."
	keyNameRemoved     = "Group name removed."
	keyAvatarChanged   = "Avatar changed."
	keyAdminPromoted   = "%s is now an admin."
	keyAdminDemoted    = "%s is no longer an admin."
	keyWriteRestricted = "Only admins can send messages."
	keyWriteOpened     = "All members can send messages."
	keyGroupUpdated    = "Group updated."
	keyInGroup         = "In %s: %s"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		keyMemberJoined:    keyMemberJoined,
		keyMemberLeft:      keyMemberLeft,
		keyNameChanged:     keyNameChanged,
		keyNameRemoved:     keyNameRemoved,
		keyAvatarChanged:   keyAvatarChanged,
		keyAdminPromoted:   keyAdminPromoted,
		keyAdminDemoted:    keyAdminDemoted,
		keyWriteRestricted: keyWriteRestricted,
		keyWriteOpened:     keyWriteOpened,
		keyGroupUpdated:    keyGroupUpdated,
		keyInGroup:         keyInGroup,
	},
	language.French: {
		keyMemberJoined:    "%s a rejoint le groupe.",
		keyMemberLeft:      "%s a quitté le groupe.",
		keyNameChanged:     "Le titre est maintenant « %s ».",
		keyNameRemoved:     "Le nom du groupe a été supprimé.",
		keyAvatarChanged:   "L'avatar a changé.",
		keyAdminPromoted:   "%s est maintenant administrateur.",
		keyAdminDemoted:    "%s n'est plus administrateur.",
		keyWriteRestricted: "Seuls les administrateurs peuvent envoyer des messages.",
		keyWriteOpened:     "Tous les membres peuvent envoyer des messages.",
		keyGroupUpdated:    "Groupe mis à jour.",
		keyInGroup:         "Dans %s : %s",
	},
}

var messages = newCatalog()

var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

func newCatalog() *catalog.Builder {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, msg := range entries {
			lo.Must0(builder.SetString(tag, key, msg))
		}
	}
	return builder
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// Languages lists the locales statements can be rendered in.
func Languages() []language.Tag {
	return supported
}

// ParseLocale maps a BCP 47 string such as "fr-CA" to the closest supported language.
func ParseLocale(locale string) (language.Tag, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, fmt.Errorf("%w: %q: %v", errors.ErrInvalidLocale, locale, err)
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.Und, fmt.Errorf("%w: %q", errors.ErrInvalidLocale, locale)
	}
	return supported[index], nil
}
