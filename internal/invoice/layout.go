package invoice

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Field names a header value extracted from the document
type Field string

const (
	FieldInvoiceNumber  Field = "invoice_number"
	FieldIssueDate      Field = "issue_date"
	FieldDueDate        Field = "due_date"
	FieldTaxPointDate   Field = "tax_point_date"
	FieldNetAmount      Field = "net_amount"
	FieldTaxAmount      Field = "tax_amount"
	FieldTotalAmount    Field = "total_amount"
	FieldCurrency       Field = "currency"
	FieldSupplierName   Field = "supplier_name"
	FieldSupplierICO    Field = "supplier_ico"
	FieldSupplierDIC    Field = "supplier_dic"
	FieldSupplierICDPH  Field = "supplier_icdph"
	FieldCustomerName   Field = "customer_name"
	FieldCustomerICO    Field = "customer_ico"
	FieldCustomerDIC    Field = "customer_dic"
	FieldCustomerICDPH  Field = "customer_icdph"
	FieldIBAN           Field = "iban"
	FieldBIC            Field = "bic"
	FieldVariableSymbol Field = "variable_symbol"
	FieldConstantSymbol Field = "constant_symbol"
)

// FieldPattern locates one header field. The first match wins; the value is
// capture group 1, or the whole match when the pattern has no group.
type FieldPattern struct {
	Field   Field
	Pattern *regexp.Regexp
}

func (p FieldPattern) find(text string) (string, bool) {
	m := p.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

// TableSpec describes the line-item table of a layout.
//
// Primary groups: line number, description, quantity, unit, discount,
// unit price without VAT, unit price with VAT, line total with VAT.
// Secondary groups: item code, EAN, VAT rate.
type TableSpec struct {
	Header    *regexp.Regexp
	Footer    *regexp.Regexp
	Primary   *regexp.Regexp
	Secondary *regexp.Regexp
}

// Layout is one supplier document layout. Adding a supplier means adding a
// Layout value and registering it; the extraction engine is shared.
type Layout struct {
	Variant   string
	Supplier  string
	Markers   []*regexp.Regexp
	Fields    []FieldPattern
	Table     TableSpec
	Fallbacks []IdentityFallback
}

// Matches reports whether any detection marker occurs in text
func (l *Layout) Matches(text string) bool {
	for _, m := range l.Markers {
		if m.MatchString(text) {
			return true
		}
	}
	return false
}

// Registry maps variant tags to layouts and picks one per document
type Registry struct {
	layouts        []*Layout
	byVariant      map[string]*Layout
	defaultVariant string
}

// NewRegistry registers layouts in detection order. defaultVariant is used
// when no marker matches and must be one of the registered variants.
func NewRegistry(defaultVariant string, layouts ...*Layout) (*Registry, error) {
	r := &Registry{
		byVariant:      make(map[string]*Layout, len(layouts)),
		defaultVariant: defaultVariant,
	}
	for _, l := range layouts {
		if l == nil || l.Variant == "" {
			return nil, fmt.Errorf("layout without variant tag")
		}
		if _, exists := r.byVariant[l.Variant]; exists {
			return nil, fmt.Errorf("duplicate layout variant: %s", l.Variant)
		}
		r.layouts = append(r.layouts, l)
		r.byVariant[l.Variant] = l
	}
	if _, ok := r.byVariant[defaultVariant]; !ok {
		return nil, fmt.Errorf("default variant %q is not registered", defaultVariant)
	}
	return r, nil
}

// DefaultRegistry returns the registry with every built-in layout
func DefaultRegistry() *Registry {
	r, err := NewRegistry(VariantLS, LSLayout())
	if err != nil {
		panic(err)
	}
	return r
}

// Detect returns the first layout whose markers occur in text, else the default
func (r *Registry) Detect(text string) *Layout {
	for _, l := range r.layouts {
		if l.Matches(text) {
			return l
		}
	}
	return r.byVariant[r.defaultVariant]
}

// Get returns the layout registered under variant
func (r *Registry) Get(variant string) (*Layout, bool) {
	l, ok := r.byVariant[variant]
	return l, ok
}

// Variants lists registered variant tags in sorted order
func (r *Registry) Variants() []string {
	variants := make([]string, 0, len(r.byVariant))
	for v := range r.byVariant {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	return variants
}

// primaryLinePattern builds the item record pattern for the given unit codes
func primaryLinePattern(units []string) *regexp.Regexp {
	num := `\d+(?:[,.]\d+)?`
	return regexp.MustCompile(fmt.Sprintf(
		`^(\d+)\s+(.+?)\s+(%[1]s)\s+(%[2]s)\s+(?:(%[1]s%%)?\s+)?(%[1]s)\s+(%[1]s)\s+(%[1]s)$`,
		num, strings.Join(units, "|"),
	))
}
