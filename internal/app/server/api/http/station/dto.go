package station

import (
	domain "ireport/internal/domain/incident"
)

type nearestInput struct {
	Lat    float64 `query:"lat" required:"true"`
	Lon    float64 `query:"lon" required:"true"`
	Agency string  `query:"agency" required:"true" doc:"pnp, bfp или pdrrmo"`
}

type nearestOutput struct {
	Body domain.Station
}
