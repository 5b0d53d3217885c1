package dto

import "sync"

// Accumulators for the scraped coverage directory. Discovery fans out per
// city, so nested writes are mutex-guarded.

type DiscoveredArea struct {
	Name       string
	IsDelivery bool
}

type DiscoveredDistrict struct {
	Name    string
	Areas   []DiscoveredArea
	areasMx sync.Mutex
}

func (d *DiscoveredDistrict) PutArea(area DiscoveredArea) {
	d.areasMx.Lock()
	defer d.areasMx.Unlock()

	d.Areas = append(d.Areas, area)
}

type DiscoveredCity struct {
	ExternalID  string
	Name        string
	CountryCode string
	Districts   map[string]*DiscoveredDistrict
	districtsMx sync.Mutex
}

func (c *DiscoveredCity) GetDistrict(name string) *DiscoveredDistrict {
	c.districtsMx.Lock()
	defer c.districtsMx.Unlock()

	if c.Districts == nil {
		c.Districts = make(map[string]*DiscoveredDistrict)
	}

	district, ok := c.Districts[name]
	if !ok {
		district = &DiscoveredDistrict{Name: name}
		c.Districts[name] = district
	}

	return district
}
