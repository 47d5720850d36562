package aggregate

import "github.com/sells-group/recon-cli/internal/model"

// Granularity is a named grouping level.
type Granularity struct {
	Name       string
	Dimensions []model.Field
}

// Granularity names.
const (
	Overall          = "overall"
	ByDate           = "by_date"
	ByCampaign       = "by_campaign"
	ByPlatform       = "by_platform"
	ByPlacement      = "by_placement"
	ByDevice         = "by_device"
	ByGender         = "by_gender"
	ByAge            = "by_age"
	ByCampaignDate   = "by_campaign_date"
	ByCampaignGender = "by_campaign_gender"
	ByDateGenderAge  = "by_date_gender_age"
)

// Granularities is the fixed contract order of segments.
var Granularities = []Granularity{
	{Name: Overall},
	{Name: ByDate, Dimensions: []model.Field{model.FieldDate}},
	{Name: ByCampaign, Dimensions: []model.Field{model.FieldCampaign}},
	{Name: ByPlatform, Dimensions: []model.Field{model.FieldPlatform}},
	{Name: ByPlacement, Dimensions: []model.Field{model.FieldPlacement}},
	{Name: ByDevice, Dimensions: []model.Field{model.FieldDevice}},
	{Name: ByGender, Dimensions: []model.Field{model.FieldGender}},
	{Name: ByAge, Dimensions: []model.Field{model.FieldAge}},
	{Name: ByCampaignDate, Dimensions: []model.Field{model.FieldCampaign, model.FieldDate}},
	{Name: ByCampaignGender, Dimensions: []model.Field{model.FieldCampaign, model.FieldGender}},
	{Name: ByDateGenderAge, Dimensions: []model.Field{model.FieldDate, model.FieldGender, model.FieldAge}},
}

// Lookup returns the granularity with the given name.
func Lookup(name string) (Granularity, bool) {
	for _, g := range Granularities {
		if g.Name == name {
			return g, true
		}
	}
	return Granularity{}, false
}

// Available reports whether every dimension of g is mapped on both sides.
func (g Granularity) Available(m model.FieldMapping) bool {
	for _, d := range g.Dimensions {
		if !m.Mapped(d, model.SideGold) || !m.Mapped(d, model.SideGrowth) {
			return false
		}
	}
	return true
}
