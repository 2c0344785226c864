package models

// StopsLineA lists the tramway line A stops in route order, served as
// reference data for the stop picker.
var StopsLineA = []string{
	"Les Vergnes",
	"Stade G. Montpied",
	"La Plaine",
	"Champratel",
	"Croix de Neyrat",
	"Hauts de Chanturgue",
	"Collège A. Camus",
	"Les Vignes",
	"Lycée A. Brugière",
	"Les Pistes",
	"Musée d'Art Roger Quilliot",
	"Montferrand La Fontaine",
	"Gravière",
	"Stade M. Michelin",
	"1er Mai",
	"Les Carmes",
	"Delille Montlosier",
	"Hôtel de Ville",
	"Gaillard",
	"Jaude",
	"Lagarlaye",
	"Maison de la Culture",
	"UCA - Campus Centre",
	"St Jacques Dolet",
	"CHU G. Montpied",
	"St Jacques Loucheur",
	"Léon Blum",
	"La Chaux",
	"Cézeaux Pellez",
	"UCA - Campus Cézeaux",
	"Margeride",
	"Fontaine du Bac",
	"Lycée Lafayette",
	"La Pardieu Gare",
}

// RouteSheetCategories are the main catalog tabs; Été is the only category
// with subcategories.
var RouteSheetCategories = []string{"Semaine", "VSD", "Été", "Travaux"}

// RouteSheetSubcategories maps each category to its subcategories; Été is
// the only one that has any.
var RouteSheetSubcategories = map[string][]string{
	"Été": {"Semaine", "Vendredi", "Samedi", "Dimanche"},
}
