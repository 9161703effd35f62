package tables

import "github.com/JonMunkholm/wite2/internal/core"

// OB is the layout of <scenario>_ob.csv.
var OB = &core.Layout{
	Kind:   core.KindOB,
	Label:  "OB Templates",
	Suffix: core.OBSuffix,
	Fields: []core.FieldSpec{
		{Field: core.FieldID, Column: "id", Type: core.FieldInt, Required: true},
		{Field: core.FieldName, Column: "name", Type: core.FieldText, Required: true},
		{Field: core.FieldSuffix, Column: "suffix", Type: core.FieldText},
		{Field: core.FieldNation, Column: "nat", Type: core.FieldInt, Required: true},
		{Field: core.FieldFirstYear, Column: "firstYear", Type: core.FieldInt, Required: true},
		{Field: core.FieldFirstMonth, Column: "firstMonth", Type: core.FieldInt, Required: true},
		{Field: core.FieldLastYear, Column: "lastYear", Type: core.FieldInt},
		{Field: core.FieldLastMonth, Column: "lastMonth", Type: core.FieldInt},
		{Field: core.FieldOBType, Column: "type", Type: core.FieldInt, Required: true},
		{Field: core.FieldPredecessor, Column: "predecessor", Type: core.FieldInt, Required: true},
	},
	Slots: core.SlotBlock{
		Item:  "sqd ",
		Count: "sqdNum ",
		Width: SquadSlots,
	},
}
