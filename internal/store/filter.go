package store

import "github.com/shopspring/decimal"

// Field names shared by the entity stores.
const (
	FieldId           = "id"
	FieldUserId       = "user_id"
	FieldWalletId     = "wallet_id"
	FieldCurrency     = "currency"
	FieldBalance      = "balance"
	FieldType         = "type"
	FieldAmount       = "amount"
	FieldStatus       = "status"
	FieldErrorMessage = "error_message"
	FieldDescription  = "description"
	FieldMeta         = "meta"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
)

// Filter matches records field by field. A plain value means equality; a Cond
// expresses any other comparison. All entries must hold.
type Filter map[string]any

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpGte Op = ">="
	OpLte Op = "<="
	OpLt  Op = "<"
	OpIn  Op = "IN"
)

type Cond struct {
	Op    Op
	Value any
}

func Ne(v any) Cond  { return Cond{Op: OpNe, Value: v} }
func Gte(v any) Cond { return Cond{Op: OpGte, Value: v} }
func Lte(v any) Cond { return Cond{Op: OpLte, Value: v} }
func Lt(v any) Cond  { return Cond{Op: OpLt, Value: v} }

// In matches any of vs.
func In[V any](vs ...V) Cond {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return Cond{Op: OpIn, Value: values}
}

// Update describes a write. Set assigns values. Inc adds a signed amount
// evaluated by the store, so concurrent increments never lose each other.
type Update struct {
	Set map[string]any
	Inc map[string]decimal.Decimal
}

func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Inc) == 0
}

type SortField struct {
	Field string
	Desc  bool
}

// FindOptions controls ordering and paging. An empty Sort means newest first.
type FindOptions struct {
	Sort   []SortField
	Limit  int
	Offset int
}

// NewestFirst is the default ordering.
var NewestFirst = []SortField{{Field: FieldCreatedAt, Desc: true}}
