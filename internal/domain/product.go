package domain

import (
	"fmt"
	"strings"
)

// Product identifies a supported RADOLAN grid product.
type Product int

const (
	// ProductSF is the daily precipitation accumulation composite.
	ProductSF Product = iota
	// ProductRW is the hourly precipitation accumulation composite.
	ProductRW
)

// WarningFamily selects which rain-warning classification applies to a
// product's observations.
type WarningFamily int

const (
	// WarningLongDuration is the Dauerregen family for daily accumulations.
	WarningLongDuration WarningFamily = iota
	// WarningShortDuration is the Starkregen family for hourly accumulations.
	WarningShortDuration
)

// ProductConfig carries everything that differs between products: grid
// geometry, units, native history depth, remote layout, and filename shape.
type ProductConfig struct {
	GridRows           int
	GridCols           int
	Unit               string
	HistoryWindowHours int
	MinYear            int
	Family             WarningFamily

	// Remote layout on opendata.dwd.de.
	RecentPath     string
	HistoricalPath string

	// Filename affixes stripped before timestamp parsing.
	FilePrefix    string // lower-case product tag in composite filenames
	ArchivePrefix string // upper-case product tag in archive bundle names
}

var productConfigs = map[Product]ProductConfig{
	ProductSF: {
		GridRows:           900,
		GridCols:           900,
		Unit:               "mm/d",
		HistoryWindowHours: 72,
		MinYear:            2006,
		Family:             WarningLongDuration,
		RecentPath:         "climate_environment/CDC/grids_germany/daily/radolan/recent/bin/",
		HistoricalPath:     "climate_environment/CDC/grids_germany/daily/radolan/historical/bin/",
		FilePrefix:         "sf",
		ArchivePrefix:      "SF",
	},
	ProductRW: {
		GridRows:           900,
		GridCols:           900,
		Unit:               "mm/h",
		HistoryWindowHours: 12,
		MinYear:            2005,
		Family:             WarningShortDuration,
		RecentPath:         "climate_environment/CDC/grids_germany/hourly/radolan/recent/bin/",
		HistoricalPath:     "climate_environment/CDC/grids_germany/hourly/radolan/historical/bin/",
		FilePrefix:         "rw",
		ArchivePrefix:      "RW",
	},
}

// Config returns the static configuration record for the product.
func (p Product) Config() ProductConfig { return productConfigs[p] }

func (p Product) String() string {
	switch p {
	case ProductSF:
		return "SF"
	case ProductRW:
		return "RW"
	default:
		return fmt.Sprintf("Product(%d)", int(p))
	}
}

// ParseProduct translates a product string ("SF" or "RW", case-insensitive)
// into a Product.
func ParseProduct(s string) (Product, error) {
	switch strings.ToUpper(s) {
	case "SF":
		return ProductSF, nil
	case "RW":
		return ProductRW, nil
	default:
		return 0, fmt.Errorf("unknown product %q", s)
	}
}
