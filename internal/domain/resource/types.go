package resource

import "errors"

var ErrInvalidCategory = errors.New("invalid resource category")

type Category string

const (
	CategoryConsoleStation Category = "console_station"
	CategoryPCStationLeft  Category = "pc_station_left"
	CategoryPCStationRight Category = "pc_station_right"
)

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryConsoleStation, CategoryPCStationLeft, CategoryPCStationRight:
		return true
	default:
		return false
	}
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}
