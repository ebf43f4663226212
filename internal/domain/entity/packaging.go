package entity

// PackagingInfo unidad de empaque con la que se vende un medicamento.
type PackagingInfo struct {
	Unit            string // tableta, frasco, ampolla...
	UnitsPerPackage int
	PackagesPerBox  int
	Description     string
}

// ShopPackagingOverride empaque específico de una tienda para un medicamento.
type ShopPackagingOverride struct {
	ShopID    string
	DrugID    string
	Packaging PackagingInfo
}
