package entity

// Product es la vista de catálogo que necesita el ledger. El catálogo es dueño del producto;
// aquí es de solo lectura.
type Product struct {
	ID          string
	CompanyID   string
	Name        string
	CustomCode  string // código propio de la empresa (opcional)
	UnitMeasure string
}
