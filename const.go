package marshal

// Format version written as the first two bytes of every dump.
const (
	MajorVersion = 4
	MinorVersion = 8
)

// defaultMaxDepth bounds container nesting on both encode and decode.
const defaultMaxDepth = 10

// floatDigits is the number of significant digits used for float text.
const floatDigits = 18

const (
	typeNIL     = '0'
	typeFALSE   = 'F'
	typeTRUE    = 'T'
	typeCLASS   = 'c'
	typeMODULE  = 'm'
	typeFIXNUM  = 'i'
	typeBIGNUM  = 'l'
	typeFLOAT   = 'f'
	typeSTRING  = '"'
	typeSYMBOL  = ':'
	typeSYMLINK = ';'
	typeARRAY   = '['
	typeHASH    = '{'
	typeOBJECT  = 'o'
	typeUSEROBJ = 'U'
)

// fixnumMaxBytes is the largest byte count a fixnum count byte can name.
const fixnumMaxBytes = 4
