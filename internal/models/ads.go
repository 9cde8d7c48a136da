package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrInvalidFilter - некорректный параметр листинга.
var ErrInvalidFilter = errors.New("invalid filter")

// AdCategory - категория объявления.
type AdCategory string

const (
	CategoryClothing    AdCategory = "CLOTHING"
	CategoryTools       AdCategory = "TOOLS"
	CategorySports      AdCategory = "SPORTS"
	CategoryAccessories AdCategory = "ACCESSORIES"
	CategoryFurniture   AdCategory = "FURNITURE"
	CategoryPets        AdCategory = "PETS"
	CategoryGames       AdCategory = "GAMES"
	CategoryBooks       AdCategory = "BOOKS"
	CategoryTechnology  AdCategory = "TECHNOLOGY"
)

// Valid сообщает, известна ли категория.
func (c AdCategory) Valid() bool {
	switch c {
	case CategoryClothing, CategoryTools, CategorySports, CategoryAccessories,
		CategoryFurniture, CategoryPets, CategoryGames, CategoryBooks, CategoryTechnology:
		return true
	}

	return false
}

// Seller - продавец, вложенный в объявление.
type Seller struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	PhoneNumber      string `json:"phoneNumber"`
	RegistrationDate string `json:"registrationDate"`
}

// Ad - объявление.
type Ad struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Price       float64    `json:"price"`
	Category    AdCategory `json:"category"`
	City        string     `json:"city"`
	PostDate    string     `json:"postDate"`
	Seller      *Seller    `json:"seller,omitempty"`
}

// AdForm - тело создания/редактирования объявления.
type AdForm struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Price       float64    `json:"price"`
	Category    AdCategory `json:"category"`
	City        string     `json:"city"`
}

// Page - страница результатов в формате удалённого API.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// AdFilter - параметры листинга. Нулевые значения не передаются.
type AdFilter struct {
	Page         int
	Size         int
	Name         string
	Category     AdCategory
	MinPrice     *float64
	MaxPrice     *float64
	ShowMineOnly bool
}

// Values кодирует фильтр в query-параметры удалённого API.
func (f AdFilter) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}

	if f.Size > 0 {
		v.Set("size", strconv.Itoa(f.Size))
	}

	if f.Name != "" {
		v.Set("name", f.Name)
	}

	if f.Category != "" {
		v.Set("category", string(f.Category))
	}

	if f.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}

	if f.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}

	if f.ShowMineOnly {
		v.Set("showMineOnly", "true")
	}

	return v
}

// AdFilterFromQuery разбирает query входящего запроса UI.
// Некорректные числа - ошибка, неизвестные параметры игнорируются.
func AdFilterFromQuery(q url.Values) (AdFilter, error) {
	var f AdFilter

	parseInt := func(key string, dst *int) error {
		if s := q.Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: %s", ErrInvalidFilter, key)
			}
			*dst = n
		}
		return nil
	}

	parseFloat := func(key string) (*float64, error) {
		s := q.Get(key)
		if s == "" {
			return nil, nil
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, key)
		}
		return &x, nil
	}

	if err := parseInt("page", &f.Page); err != nil {
		return AdFilter{}, err
	}

	if err := parseInt("size", &f.Size); err != nil {
		return AdFilter{}, err
	}

	var err error
	if f.MinPrice, err = parseFloat("minPrice"); err != nil {
		return AdFilter{}, err
	}

	if f.MaxPrice, err = parseFloat("maxPrice"); err != nil {
		return AdFilter{}, err
	}

	f.Name = q.Get("name")
	f.Category = AdCategory(q.Get("category"))
	f.ShowMineOnly = q.Get("showMineOnly") == "true"

	return f, nil
}
