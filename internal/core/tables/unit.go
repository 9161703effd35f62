package tables

import "github.com/JonMunkholm/wite2/internal/core"

// Unit is the layout of <scenario>_unit.csv. The "type" column holds the
// unit's OB template id.
var Unit = &core.Layout{
	Kind:   core.KindUnit,
	Label:  "Units",
	Suffix: core.UnitSuffix,
	Fields: []core.FieldSpec{
		{Field: core.FieldID, Column: "id", Type: core.FieldInt, Required: true},
		{Field: core.FieldName, Column: "name", Type: core.FieldText, Required: true},
		{Field: core.FieldOBRef, Column: "type", Type: core.FieldInt, Required: true},
		{Field: core.FieldNation, Column: "nat", Type: core.FieldInt, Required: true},
		{Field: core.FieldX, Column: "x", Type: core.FieldInt, Required: true},
		{Field: core.FieldY, Column: "y", Type: core.FieldInt, Required: true},
		{Field: core.FieldDelay, Column: "delay", Type: core.FieldInt},
		{Field: core.FieldHQ, Column: "hq", Type: core.FieldInt},
		{Field: core.FieldHHQ, Column: "hhq", Type: core.FieldInt},
		{Field: core.FieldAmmo, Column: "ammo", Type: core.FieldInt},
		{Field: core.FieldAmmoNeed, Column: "aNeed", Type: core.FieldInt},
		{Field: core.FieldSupplies, Column: "sup", Type: core.FieldInt},
		{Field: core.FieldSuppliesNeed, Column: "sNeed", Type: core.FieldInt},
		{Field: core.FieldFuel, Column: "fuel", Type: core.FieldInt},
		{Field: core.FieldFuelNeed, Column: "fNeed", Type: core.FieldInt},
		{Field: core.FieldVehicles, Column: "truck", Type: core.FieldInt},
		{Field: core.FieldVehiclesNeed, Column: "vNeed", Type: core.FieldInt},
	},
	Slots: core.SlotBlock{
		Item:  "sqd.u",
		Count: "sqd.num",
		Attrs: []string{"sqd.dis", "sqd.dam", "sqd.fat", "sqd.fired", "sqd.exp", "sqd.expAccum"},
		Width: SquadSlots,
	},
}
