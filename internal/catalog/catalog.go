// Package catalog holds the fixed set of beverage classes the model predicts.
// The table is compiled in and validated at startup against the model's
// output width, so an index can never map outside the catalog.
package catalog

import "fmt"

// Unknown is returned for indices outside the catalog.
const Unknown = "Unknown"

var labels = [...]string{
	"ABC Kopi Susu",
	"BearBrand",
	"Benecol Lychee 100ml",
	"Cimory Bebas Laktosa 250ml",
	"Cimory Susu Coklat Cashew",
	"Cimory Yogurt Strawberry",
	"Cola-Cola 390ml",
	"Fanta Strawberry 390ml",
	"Floridina 350ml",
	"Fruit Tea Freeze 350ml",
	"Garantea",
	"Golda Cappucino",
	"Hydro Coco Original 250ml",
	"Ichitan Thai Green Tea",
	"Larutan Penyegar Rasa Jambu",
	"Mizone 500ml",
	"NU Green Tea Yogurt",
	"Nutri Boost Orange Flavour 250ml",
	"Oatside Cokelat",
	"Pepsi Blue Kaleng",
	"Pocari Sweat 500ml",
	"Sprite 390ml",
	"Tebs Sparkling 330ml",
	"Teh Pucuk Harum",
	"Teh Kotak 200ml",
	"Tehbotol Sosro 250ml",
	"Ultra Milk Coklat Ultrajaya 200ml",
	"Ultramilk Fullcream 250ml",
	"Yakult",
	"You C 1000 Orange",
}

// Size returns the number of classes in the catalog.
func Size() int {
	return len(labels)
}

// Label maps a model output index to its catalog entry. Indices outside the
// catalog map to Unknown.
func Label(index int) string {
	if index < 0 || index >= len(labels) {
		return Unknown
	}
	return labels[index]
}

// Labels returns a copy of the catalog in index order.
func Labels() []string {
	out := make([]string, len(labels))
	copy(out, labels[:])
	return out
}

// Validate checks that the model's output width matches the catalog.
func Validate(outputWidth int) error {
	if outputWidth != len(labels) {
		return fmt.Errorf("model output width %d does not match catalog size %d", outputWidth, len(labels))
	}
	return nil
}
