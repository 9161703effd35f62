package tables

import "github.com/JonMunkholm/wite2/internal/core"

// Ground is the layout of <scenario>_ground.csv. Weapon attributes move with
// their slot when the block is compacted.
var Ground = &core.Layout{
	Kind:   core.KindGround,
	Label:  "Ground Elements",
	Suffix: core.GroundSuffix,
	Fields: []core.FieldSpec{
		{Field: core.FieldID, Column: "id", Type: core.FieldInt, Required: true},
		{Field: core.FieldName, Column: "name", Type: core.FieldText, Required: true},
		{Field: core.FieldTypeID, Column: "type", Type: core.FieldInt, Required: true},
		{Field: core.FieldSize, Column: "size", Type: core.FieldInt},
		{Field: core.FieldMen, Column: "men", Type: core.FieldInt},
	},
	Slots: core.SlotBlock{
		Item:  "wpn ",
		Count: "wpnNum ",
		Attrs: []string{"wpnAmmo ", "wpnRof ", "wpnAcc ", "wpnFace "},
		Width: WeaponSlots,
	},
}
