package gallery

import (
	"strings"

	"excursion/models"
)

// AllCategories selects every item.
const AllCategories = "Tous"

// PublicCategories are the filters offered on the destinations page.
var PublicCategories = []string{
	AllCategories,
	string(models.LocationDakarGoree),
	string(models.LocationSineSaloum),
	string(models.LocationFathala),
	string(models.LocationBandia),
	"Mbour",
	"Village",
}

// AdminCategories are the filters offered in the admin media list.
var AdminCategories = []string{
	AllCategories,
	string(models.LocationDakarGoree),
	string(models.LocationLacRose),
	string(models.LocationSineSaloum),
	string(models.LocationLompoul),
	string(models.LocationFathala),
	string(models.LocationBandia),
}

// Filter keeps the items whose location equals or contains category. When
// matchTitle is set, a title containing the category also matches. The
// input order is preserved.
func Filter(items []models.GalleryItem, category string, matchTitle bool) []models.GalleryItem {
	if category == "" || category == AllCategories {
		return items
	}

	filtered := []models.GalleryItem{}
	for _, item := range items {
		location := string(item.Location)
		if location == category || strings.Contains(location, category) ||
			(matchTitle && strings.Contains(item.Title, category)) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
