package turn

import "fmt"

// Localized copy for the deterministic messages a turn can end with.
// Unknown languages fall back to English.
type localizedCopy struct {
	stopped   string
	apology   string // takes the error reason
	upsell    string
	uploading string
}

var copyByLang = map[string]localizedCopy{
	"en": {
		stopped:   "Generation stopped.",
		apology:   "Sorry, something went wrong: %s",
		upsell:    "You've reached your daily limit on the free plan. Upgrade to keep going.",
		uploading: "Your files are still uploading. One moment...",
	},
	"zh": {
		stopped:   "生成已停止。",
		apology:   "抱歉,出了点问题:%s",
		upsell:    "您已达到免费计划的每日上限,升级后可继续使用。",
		uploading: "文件仍在上传中,请稍候……",
	},
}

func copyFor(lang string) localizedCopy {
	if c, ok := copyByLang[lang]; ok {
		return c
	}
	return copyByLang["en"]
}

// StoppedMessage is the text a canceled placeholder is rewritten into.
func StoppedMessage(lang string) string {
	return copyFor(lang).stopped
}

// ApologyMessage is the text a failed placeholder is rewritten into.
func ApologyMessage(lang, reason string) string {
	return fmt.Sprintf(copyFor(lang).apology, reason)
}

// UpsellMessage is surfaced when a quota or capability gate blocks the
// turn before dispatch.
func UpsellMessage(lang string) string {
	return copyFor(lang).upsell
}

// UploadingNotice defers a file turn whose attachments are in flight.
func UploadingNotice(lang string) string {
	return copyFor(lang).uploading
}
