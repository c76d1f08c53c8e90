package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"excursion/models"
)

func TestFilter(t *testing.T) {
	items := []models.GalleryItem{
		{ID: "1", Title: "Maison des Esclaves", Location: models.LocationDakarGoree},
		{ID: "2", Title: "Plage de Mbour", Location: models.LocationOther},
		{ID: "3", Title: "Lions", Location: models.LocationFathala},
	}

	assert.Len(t, Filter(items, AllCategories, true), 3)
	assert.Len(t, Filter(items, "", false), 3)

	goree := Filter(items, string(models.LocationDakarGoree), false)
	assert.Equal(t, "1", goree[0].ID)

	assert.Len(t, Filter(items, "Mbour", true), 1)
	assert.Empty(t, Filter(items, "Mbour", false))

	// substring match on location
	assert.Len(t, Filter(items, "Dakar", false), 1)
}

func TestSamples_AreFreshCopies(t *testing.T) {
	a := Samples()
	a[0].Title = "changed"
	assert.NotEqual(t, "changed", Samples()[0].Title)
	for _, item := range Samples() {
		assert.True(t, item.Location.Valid())
		assert.Contains(t, item.Image, "https://")
	}
}
