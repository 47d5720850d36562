package aggregate

import (
	"strings"

	"github.com/sells-group/recon-cli/internal/model"
)

// deviceCodes maps Google Ads device labels to warehouse codes.
var deviceCodes = map[string]string{
	"computers":     "DESKTOP",
	"mobile phones": "MOBILE",
	"tablets":       "TABLET",
	"other":         "OTHER",
	"tv screens":    "OTHER",
	"connected tv":  "OTHER",
}

// placementCodes maps Meta placement labels to warehouse codes.
var placementCodes = map[string]string{
	"ads on facebook reels":           "facebook_reels_overlay",
	"facebook reels":                  "facebook_reels",
	"facebook stories":                "facebook_stories",
	"facebook notifications":          "facebook_notification",
	"facebook profile feed":           "facebook_profile_feed",
	"facebook feed":                   "feed",
	"facebook video feeds":            "facebook_instream_video",
	"facebook reels irp overlay":      "facebook_reels_irp_overlay",
	"in-stream reels":                 "instream_video",
	"marketplace":                     "marketplace",
	"right column":                    "right_hand_column",
	"search results":                  "search",
	"business help center":            "facebook_search_results",
	"explore":                         "instagram_explore",
	"explore home":                    "instagram_explore_grid_home",
	"instagram reels":                 "instagram_reels",
	"instagram stories":               "instagram_stories",
	"instagram search results":        "instagram_search",
	"instagram feed":                  "feed",
	"messenger stories":               "messenger_stories",
	"messenger inbox":                 "messenger_inbox",
	"native, banner and interstitial": "an_classic",
	"rewarded video":                  "rewarded_video",
	"threads feed":                    "threads_feed",
	"feed":                            "feed",
}

var snakeReplacer = strings.NewReplacer(" ", "_", "-", "_", ",", "")

// NormalizeDimension canonicalizes a raw dimension value so both sources
// group identically. Empty values become the unknown sentinel.
func NormalizeDimension(f model.Field, raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || IsPlaceholder(v) {
		return model.UnknownValue
	}
	switch f {
	case model.FieldDate:
		return NormalizeDate(v)
	case model.FieldDevice:
		if code, ok := deviceCodes[strings.ToLower(v)]; ok {
			return code
		}
		return strings.ToUpper(v)
	case model.FieldPlacement:
		if code, ok := placementCodes[strings.ToLower(v)]; ok {
			return code
		}
		return snakeReplacer.Replace(strings.ToLower(v))
	default:
		return v
	}
}
