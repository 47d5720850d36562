package schema

import "github.com/sells-group/recon-cli/internal/model"

// synonyms lists the column names each canonical field is known by across
// Meta, Google Ads and warehouse exports.
var synonyms = map[model.Field][]string{
	model.FieldCost: {
		"cost", "spend", "amount", "price", "total cost", "amount spent",
		"amount spent (inr)", "spend cost", "investment",
	},
	model.FieldImpressions: {
		"impressions", "impr", "impr.", "views", "impression", "imp",
	},
	model.FieldClicks: {
		"clicks", "click", "total clicks", "link clicks", "clicks (all)",
		"outbound clicks",
	},
	model.FieldReach: {
		"reach", "total reach", "unique reach",
	},
	model.FieldPurchases: {
		"purchases", "purchases conversions", "conversions", "purchase",
		"total purchases", "purchases total",
	},
	model.FieldConversionValue: {
		"conversion value", "purchases conversion value", "purchase value",
		"total conversion value", "conv value", "value",
	},
	model.FieldCampaign: {
		"campaign", "campaign name", "campaignnames", "campaign id",
		"ad set name", "ad set", "camp",
	},
	model.FieldDate: {
		"date", "day", "dt", "timestamp", "reporting starts", "reporting ends",
		"period", "month",
	},
	model.FieldPlatform: {
		"platform", "publisher platform",
	},
	model.FieldPlacement: {
		"placement", "placement name", "impression device",
	},
	model.FieldDevice: {
		"device", "device type",
	},
	model.FieldGender: {
		"gender", "sex", "consumer gender",
	},
	model.FieldAge: {
		"age", "age range", "agerange", "consumer age",
	},
}

// Synonyms returns the known names for f, including f itself.
func Synonyms(f model.Field) []string {
	out := []string{normalize(string(f))}
	for _, s := range synonyms[f] {
		if n := normalize(s); n != out[0] {
			out = append(out, n)
		}
	}
	return out
}
