package gallery

import (
	"time"

	"excursion/models"
)

const sampleCollection = "mock"

// Samples returns the fixed demo items served when the database cannot be
// reached, newest first. Callers get a fresh copy.
func Samples() []models.GalleryItem {
	base := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	at := func(day int) time.Time { return base.AddDate(0, 0, day) }

	items := []models.GalleryItem{
		{
			ID:          "1",
			Title:       "Maison des Esclaves",
			Location:    models.LocationDakarGoree,
			Image:       "https://images.unsplash.com/photo-1596489852237-773a4d048493?q=80&w=2070&auto=format&fit=crop",
			Description: "Visite émouvante de l'île historique de Gorée.",
			Created:     at(5),
		},
		{
			ID:          "2",
			Title:       "Récolte de Sel",
			Location:    models.LocationLacRose,
			Image:       "https://images.unsplash.com/photo-1623853876008-052601724031?q=80&w=1974&auto=format&fit=crop",
			Description: "Les couleurs uniques du Lac Retba.",
			Created:     at(4),
		},
		{
			ID:          "3",
			Title:       "Safari à Bandia",
			Location:    models.LocationBandia,
			Image:       "https://images.unsplash.com/photo-1516426122078-c23e76319801?q=80&w=2068&auto=format&fit=crop",
			Description: "Observation des girafes, rhinocéros et zèbres en liberté.",
			Created:     at(3),
		},
		{
			ID:          "4",
			Title:       "Bivouac dans le Désert",
			Location:    models.LocationLompoul,
			Image:       "https://images.unsplash.com/photo-1542401886-65d6c61db217?q=80&w=2070&auto=format&fit=crop",
			Description: "Nuit sous les étoiles dans les dunes de Lompoul.",
			Created:     at(2),
		},
		{
			ID:          "5",
			Title:       "Mangrove du Sine-Saloum",
			Location:    models.LocationSineSaloum,
			Image:       "https://images.unsplash.com/photo-1533224749348-1548545e6988?q=80&w=2070&auto=format&fit=crop",
			Description: "Balade en pirogue au cœur du delta.",
			Created:     at(1),
		},
		{
			ID:          "6",
			Title:       "Marche avec les Lions",
			Location:    models.LocationFathala,
			Image:       "https://images.unsplash.com/photo-1615234503722-192667ae967a?q=80&w=2070&auto=format&fit=crop",
			Description: "Expérience unique à la réserve de Fathala.",
			Created:     at(0),
		},
	}

	for i := range items {
		items[i].CollectionID = sampleCollection
		items[i].CollectionName = models.GalleryCollection
		items[i].Updated = items[i].Created
		items[i].Kind = models.MediaImage
	}
	return items
}
