package model

var characterLabels = []Join{
	{
		Table:  "characterimportance",
		Alias:  "ci",
		On:     "p.characterimportance = ci.id",
		Select: []Column{{Expr: "ci.importance", As: "importance_label"}},
	},
	{
		Table:  "characterstatus",
		Alias:  "cs",
		On:     "p.status = cs.id",
		Select: []Column{{Expr: "cs.status", As: "status_label"}},
	},
}

// Catalog returns every resource the service exposes, in the order they are
// listed and exported.
func Catalog() []Resource {
	return []Resource{
		{
			Name:     "talents",
			Table:    "talents",
			Singular: "Talent",
			Columns:  []string{"name", "xp_cost", "requirements", "effect", "rank_requirement", "species_requirement"},
			Summary:  []string{"name", "xp_cost", "requirements", "rank_requirement"},
		},
		{
			Name:     "characters",
			Table:    "characters",
			Singular: "Character",
			Columns:  []string{"name", "description", "characterimportance", "status", "causeofdeath", "iconhtml"},
			Joins:    characterLabels,
			Summary:  []string{"name", "importance_label", "status_label"},
		},
		{
			Name:      "campaign",
			Table:     "campaign",
			Singular:  "Campaign",
			NotFound:  "No campaign found",
			Singleton: true,
			Columns:   []string{"title", "description", "setting", "current_state", "call_for_aid"},
			Summary:   []string{"title", "setting"},
		},
		{
			Name:     "campaign/factions",
			Table:    "campaign_factions",
			Singular: "Faction",
			ReadOnly: true,
			Columns:  []string{"name", "description"},
			Summary:  []string{"name", "description"},
		},
		{
			Name:     "campaign/planets",
			Table:    "campaign_planets",
			Singular: "Planet",
			ReadOnly: true,
			Columns:  []string{"name", "details", "population", "exports", "environment"},
			Summary:  []string{"name", "population", "environment"},
		},
		{
			Name:     "campaign/groups",
			Table:    "campaign_groups",
			Singular: "Group",
			ReadOnly: true,
			Columns:  []string{"name", "description"},
			Summary:  []string{"name", "description"},
		},
		{
			Name:     "regroupActions",
			Table:    "regroup_actions",
			Singular: "Regroup Action",
			Columns:  []string{"name", "description", "notes"},
			Children: []ChildKind{{
				Name:       "options",
				Table:      "regroup_action_options",
				ForeignKey: "regroup_action_id",
				Fields:     []string{"id", "title", "effect", "example_usage"},
			}},
			Summary: []string{"name", "description"},
		},
		{
			Name:     "ascensionPackages",
			Table:    "ascension_packages",
			Singular: "Ascension Package",
			Columns: []string{
				"name", "tagline", "description", "xp_cost", "keyword", "influence_bonus",
				"requirements", "story_element", "example_usage", "source_page", "source_file",
			},
			Defaults: map[string]Value{"source_file": Text("AscensionCompendiumv1")},
			Children: []ChildKind{
				{
					Name:       "effects",
					Table:      "ascension_effects",
					ForeignKey: "ascension_id",
					Fields:     []string{"id", "effect_type", "effect_description"},
				},
				{
					Name:       "keywords",
					Table:      "ascension_keywords",
					ForeignKey: "ascension_id",
					Fields:     []string{"id", "keyword"},
				},
				{
					Name:       "examples",
					Table:      "ascension_examples",
					ForeignKey: "ascension_id",
					Fields:     []string{"id", "character_name", "example_text"},
				},
			},
			Summary: []string{"name", "tagline", "xp_cost", "source_page"},
		},
		{
			Name:     "combatActions",
			Table:    "combat_actions",
			Singular: "Combat Action",
			Columns: []string{
				"name", "action_type", "action_category", "description", "dice_bonus",
				"requirements", "duration", "effects", "test_required", "source_page",
			},
			Summary: []string{"name", "action_type", "action_category", "source_page"},
		},
		{
			Name:     "combatOptions",
			Table:    "combat_options",
			Singular: "Combat Option",
			Columns:  []string{"name", "option_type", "attack_type", "description", "dn_modifier", "effect", "source_page"},
			Summary:  []string{"name", "option_type", "dn_modifier"},
		},
		{
			Name:     "conditions",
			Table:    "conditions",
			Singular: "Condition",
			Columns:  []string{"name", "description", "mechanical_effect", "duration", "removal_method", "source_page"},
			Summary:  []string{"name", "duration", "source_page"},
		},
		{
			Name:     "combatReferences",
			Aliases:  []string{"combatRefs"},
			Table:    "combat_references",
			Singular: "Combat Reference",
			Columns:  []string{"section", "topic", "summary", "reference_page"},
			Summary:  []string{"section", "topic", "reference_page"},
		},
		{
			Name:     "criticalHits",
			Table:    "critical_hits",
			Singular: "Critical Hit",
			Columns:  []string{"roll_range", "name", "description", "effect", "glory_effect"},
			Summary:  []string{"roll_range", "name"},
		},
		{
			Name:     "combatComplications",
			Aliases:  []string{"combatComps"},
			Table:    "combat_complications",
			Singular: "Combat Complication",
			Columns:  []string{"roll_range", "name", "description", "test_required", "dn_example"},
			Summary:  []string{"roll_range", "name", "test_required"},
		},
		{
			Name:     "environmentalHazards",
			Table:    "environmental_hazards",
			Singular: "Environmental Hazard",
			Columns:  []string{"name", "description", "effect", "test_required", "dn_example", "damage", "duration"},
			Summary:  []string{"name", "damage", "duration"},
		},
		{
			Name:     "attackModifiers",
			Table:    "attack_modifiers",
			Singular: "Attack Modifier",
			Columns:  []string{"name", "modifier_type", "description", "effect", "condition", "applies_to", "source_page"},
			Summary:  []string{"name", "modifier_type", "applies_to"},
		},
		{
			Name:     "characterImportance",
			Table:    "characterimportance",
			Singular: "Importance",
			ReadOnly: true,
			Columns:  []string{"importance"},
			Summary:  []string{"importance"},
		},
		{
			Name:     "characterStatus",
			Table:    "characterstatus",
			Singular: "Status",
			ReadOnly: true,
			Columns:  []string{"status"},
			Summary:  []string{"status"},
		},
		{
			Name:     "mainCharacters",
			Table:    "main_characters",
			Singular: "Main Character",
			Columns: []string{
				"name", "photo_url", "personal_details", "background",
				"notable_quotes", "notable_moments", "character_id",
			},
			Joins: []Join{
				{
					Table: "characters",
					Alias: "c",
					On:    "p.character_id = c.id",
					Select: []Column{
						{Expr: "c.name", As: "base_name"},
						{Expr: "c.description", As: "base_description"},
					},
				},
				{
					Table:  "characterimportance",
					Alias:  "ci",
					On:     "c.characterimportance = ci.id",
					Select: []Column{{Expr: "ci.importance", As: "importance_label"}},
				},
				{
					Table:  "characterstatus",
					Alias:  "cs",
					On:     "c.status = cs.id",
					Select: []Column{{Expr: "cs.status", As: "status_label"}},
				},
			},
			Summary: []string{"name", "base_name", "status_label"},
		},
		{
			Name:     "timeline",
			Table:    "timeline_events",
			Singular: "Timeline Event",
			Columns: []string{
				"title", "description", "event_date", "imperial_code",
				"related_character", "related_campaign", "source_file", "millennium",
			},
			Defaults: map[string]Value{
				"source_file": Text("Custom"),
				"millennium":  Int(42),
			},
			Normalize: fillImperialCode,
			Summary:   []string{"title", "imperial_code", "event_date"},
		},
	}
}
