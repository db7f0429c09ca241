package mapping

type FieldScope string

type FieldType string

const (
	ScopeProduct FieldScope = "product"
	ScopeVariant FieldScope = "variant"

	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypePrice   FieldType = "price"
)

// TargetFieldMeta describes one column of the Brickfox target schema.
type TargetFieldMeta struct {
	Key          string
	Scope        FieldScope
	Type         FieldType
	Required     bool
	DefaultValue any
}

// SupplierFieldKey is the variant column that is always overridden with
// the current supplier name, whatever the mapping config says.
const SupplierFieldKey = "v_supplier"

// PurchasePriceFieldKey feeds the sales-price formula.
const PurchasePriceFieldKey = "v_purchase_price"

// BrickfoxSchema is the fixed target schema. Its order defines the
// output column order and must never be re-sorted.
func BrickfoxSchema() []TargetFieldMeta {
	return []TargetFieldMeta{
		{Key: "p_model", Scope: ScopeProduct, Type: TypeString, Required: true},
		{Key: "p_name", Scope: ScopeProduct, Type: TypeString, Required: true},
		{Key: "p_description", Scope: ScopeProduct, Type: TypeString},
		{Key: "p_manufacturer", Scope: ScopeProduct, Type: TypeString},
		{Key: "p_weight", Scope: ScopeProduct, Type: TypeNumber},
		{Key: "p_customs_tariff_number", Scope: ScopeProduct, Type: TypeString},
		{Key: "p_customs_tariff_text", Scope: ScopeProduct, Type: TypeString},
		{Key: "p_hazmat", Scope: ScopeProduct, Type: TypeBoolean, DefaultValue: false},
		{Key: "p_tax", Scope: ScopeProduct, Type: TypeNumber, Required: true, DefaultValue: 19},
		{Key: "p_status", Scope: ScopeProduct, Type: TypeBoolean, DefaultValue: true},
		{Key: "v_model", Scope: ScopeVariant, Type: TypeString, Required: true},
		{Key: "v_ean", Scope: ScopeVariant, Type: TypeString},
		{Key: SupplierFieldKey, Scope: ScopeVariant, Type: TypeString, Required: true},
		{Key: "v_supplier_model", Scope: ScopeVariant, Type: TypeString},
		{Key: PurchasePriceFieldKey, Scope: ScopeVariant, Type: TypePrice},
		{Key: "v_price", Scope: ScopeVariant, Type: TypePrice, Required: true},
		{Key: "v_packaging_unit", Scope: ScopeVariant, Type: TypeString},
		{Key: "v_delivery_quantity", Scope: ScopeVariant, Type: TypeString, DefaultValue: "1 Stück"},
		{Key: "v_delivery_time", Scope: ScopeVariant, Type: TypeString, DefaultValue: "3-5 Tage"},
		{Key: "v_stock", Scope: ScopeVariant, Type: TypeNumber, DefaultValue: 0},
		{Key: "v_source_url", Scope: ScopeVariant, Type: TypeString},
	}
}
