package napi

// Value is an opaque handle to a value living in the host. The binding never
// looks inside it; a Value is only valid during the host call scope it was
// obtained in.
type Value uintptr

// Function is a Value that has been checked to be a host function.
// Decoding into a Function fails with FunctionExpected for anything else.
type Function Value

// Reference keeps a host value alive beyond the current call scope.
type Reference uintptr

// Void is the unit type: as an argument type it accepts any input, as a result
// it encodes to undefined.
type Void struct{}

// ValueType is the host's type tag for a value.
type ValueType int

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
	TypeFunction
	TypeExternal
	TypeBigInt
)

var valueTypeNames = [...]string{
	TypeUndefined: "Undefined",
	TypeNull:      "Null",
	TypeBoolean:   "Boolean",
	TypeNumber:    "Number",
	TypeString:    "String",
	TypeSymbol:    "Symbol",
	TypeObject:    "Object",
	TypeFunction:  "Function",
	TypeExternal:  "External",
	TypeBigInt:    "BigInt",
}

func (t ValueType) String() string {
	if t >= 0 && int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "Unknown"
}

// expectedKind is the error kind reported when t was expected but not found.
func (t ValueType) expectedKind() ErrorKind {
	switch t {
	case TypeString:
		return StringExpected
	case TypeNumber:
		return NumberExpected
	case TypeBoolean:
		return BooleanExpected
	case TypeObject:
		return ObjectExpected
	case TypeFunction:
		return FunctionExpected
	default:
		return InvalidArgument
	}
}
