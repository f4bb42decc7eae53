package model

import "time"

// Resource types as stored in resources.type.
const (
	ResourceEquipment  = "EQUIPMENT"
	ResourceConsumable = "CONSUMABLE"
	ResourceSpace      = "SPACE"
)

// Resource states as stored in resources.state.  Only DISPONIBLE resources
// can be reserved; the reservation workflow reads the state but never
// changes it; state transitions belong to maintenance/administration.
const (
	StateDisponible    = "DISPONIBLE"
	StateMantenimiento = "MANTENIMIENTO"
	StateBaja          = "BAJA"
)

// Resource is equipment, a consumable or a sub-space belonging to exactly
// one lab.
//
// Fields:
//  ID            – primary key identifier.
//  LabID         – owning lab.
//  Type          – EQUIPMENT, CONSUMABLE or SPACE.
//  Name          – display name.
//  InventoryCode – institutional inventory tag.
//  State         – DISPONIBLE, MANTENIMIENTO or BAJA.
type Resource struct {
	ID            uint64    `json:"id"`
	LabID         uint64    `json:"lab_id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	InventoryCode string    `json:"inventory_code"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ConsumableStock is the optional stock sub-record attached to a CONSUMABLE
// resource.
type ConsumableStock struct {
	ID           uint64  `json:"id"`
	ResourceID   uint64  `json:"resource_id"`
	Unit         string  `json:"unit"`
	QtyAvailable float64 `json:"qty_available"`
	ReorderPoint float64 `json:"reorder_point"`
}
