package search

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BurntSushi/toml"
)

// Endpoint is one searchable category: where its data lives and which page
// a hit should link to.
type Endpoint struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
	Path  string `toml:"path"`
	Note  string `toml:"note,omitempty"`
}

// DefaultEndpoints returns the built-in category list with every URL
// resolved against baseURL (e.g. "http://localhost:6500").
func DefaultEndpoints(baseURL string) []Endpoint {
	eps := []Endpoint{
		{Label: "Talents", URL: "/api/talents", Path: "/talents"},
		{Label: "Characters", URL: "/api/characters", Path: "/characters"},
		{Label: "Regroup Actions", URL: "/api/regroupActions", Path: "/regroup-actions"},
		{Label: "Ascension Packages", URL: "/api/ascensionPackages", Path: "/ascensions"},

		{Label: "Campaign Overview", URL: "/api/campaign", Path: "/campaign",
			Note: "General overview of the Chalnath Expanse campaign."},
		{Label: "Factions", URL: "/api/campaign/factions", Path: "/campaign",
			Note: "Displayed within campaign and location pages."},
		{Label: "Groups", URL: "/api/campaign/groups", Path: "/campaign",
			Note: "Appears as part of the campaign overview."},
		{Label: "Planets", URL: "/api/campaign/planets", Path: "/campaign",
			Note: "General list of planets within the Chalnath Expanse."},
		{Label: "Kalidonia", URL: "/api/campaign/planets", Path: "/campaign/kalidonia",
			Note: "Planet-specific location page."},
		{Label: "Chalnath Locations", URL: "/api/campaign/planets", Path: "/chalnath-locations",
			Note: "Hub for discovered planetary locations."},

		{Label: "Combat Overview", URL: "/api/combatActions", Path: "/combat",
			Note: "Central hub for all Wrath & Glory combat mechanics."},
		{Label: "Combat Actions", URL: "/api/combatActions", Path: "/combat/actions",
			Note: "Major actions that can be performed in combat rounds."},
		{Label: "Combat Options", URL: "/api/combatOptions", Path: "/combat/options",
			Note: "Tactical options to modify attack and defense rolls."},
		{Label: "Attack Modifiers", URL: "/api/attackModifiers", Path: "/combat/modifiers",
			Note: "Situational modifiers affecting attack rolls and DN values."},
		{Label: "Conditions", URL: "/api/conditions", Path: "/combat/conditions",
			Note: "Status effects that alter character performance in battle."},
		{Label: "Combat References", URL: "/api/combatReferences", Path: "/combat/references",
			Note: "Rule summaries and quick lookup references for GMs and players."},
		{Label: "Critical Hits", URL: "/api/criticalHits", Path: "/combat/critical-hits",
			Note: "Detailed critical hit effects based on roll results."},
		{Label: "Combat Complications", URL: "/api/combatComplications", Path: "/combat/complications",
			Note: "Combat mishaps and weapon failures that occur on bad rolls."},
		{Label: "Environmental Hazards", URL: "/api/environmentalHazards", Path: "/combat/environmental-hazards",
			Note: "Hazardous battlefield conditions and terrain effects."},

		{Label: "FAFO - Hrellik Orchik", URL: "/api/mainCharacters", Path: "/fafo/hrellik",
			Note: "The lone Kroot wanderer of Nikonova's undercity."},
		{Label: "FAFO - Kaleson Van Der Hildr", URL: "/api/mainCharacters", Path: "/fafo/kaleson",
			Note: "Veteran commander and strategist of the FAFO unit."},
		{Label: "FAFO - Agnes Grimm", URL: "/api/mainCharacters", Path: "/fafo/agnes",
			Note: "The medic who defies orders to save lives."},
		{Label: "FAFO - Joe Graves", URL: "/api/mainCharacters", Path: "/fafo/joe",
			Note: "The reluctant soldier with a broken faith in command."},
		{Label: "FAFO - Dahlia Garakis", URL: "/api/mainCharacters", Path: "/fafo/dahlia",
			Note: "A faith-driven zealot scarred by divine fire."},
	}
	for i := range eps {
		eps[i].URL = resolve(baseURL, eps[i].URL)
	}
	return eps
}

type endpointFile struct {
	Endpoint []Endpoint `toml:"endpoint"`
}

// LoadEndpoints reads a category list from a TOML file of [[endpoint]]
// tables. Relative URLs are resolved against baseURL.
func LoadEndpoints(path, baseURL string) ([]Endpoint, error) {
	var f endpointFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("reading endpoints %s: %w", path, err)
	}
	for i, ep := range f.Endpoint {
		if ep.Label == "" || ep.URL == "" {
			return nil, fmt.Errorf("endpoint %d in %s: label and url are required", i+1, path)
		}
		f.Endpoint[i].URL = resolve(baseURL, ep.URL)
	}
	return f.Endpoint, nil
}

func resolve(baseURL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}
