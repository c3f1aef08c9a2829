package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dom/foodorder-backend/internal/config"
	"github.com/dom/foodorder-backend/internal/domain"
)

const (
	placeholderImageURL = "https://via.placeholder.com/400x400?text=No+Image"
	imageResolution     = "400"

	minLookupPrice = 5000
	maxLookupPrice = 30000
)

var ErrBarcodeLookup = errors.New("barcode lookup failed")

var sampleProducts = []domain.Product{
	{
		ID:          "1",
		Name:        "Hamburguesa Clásica",
		Description: "Hamburguesa con carne de res, lechuga, tomate, queso y salsa especial",
		Price:       8500,
		ImageURL:    "https://images.unsplash.com/photo-1568901346375-23c9450c58e9?w=400&h=400&fit=crop",
		Category:    "Hamburguesas",
	},
	{
		ID:          "2",
		Name:        "Pizza Margherita",
		Description: "Pizza tradicional con salsa de tomate, mozzarella y albahaca fresca",
		Price:       12000,
		ImageURL:    "https://images.unsplash.com/photo-1604382354936-07c5d9983bd3?w=400&h=400&fit=crop",
		Category:    "Pizzas",
	},
	{
		ID:          "3",
		Name:        "Ensalada César",
		Description: "Lechuga romana, crutones, parmesano y aderezo César",
		Price:       6500,
		ImageURL:    "https://images.unsplash.com/photo-1546793665-c74683f339c1?w=400&h=400&fit=crop",
		Category:    "Ensaladas",
	},
	{
		ID:          "4",
		Name:        "Pasta Carbonara",
		Description: "Pasta con salsa cremosa, panceta, huevo y queso parmesano",
		Price:       9500,
		ImageURL:    "https://images.unsplash.com/photo-1621996346565-e3dbc353d2e5?w=400&h=400&fit=crop",
		Category:    "Pastas",
	},
	{
		ID:          "5",
		Name:        "Sushi Roll California",
		Description: "Roll de sushi con aguacate, pepino y cangrejo",
		Price:       15000,
		ImageURL:    "https://images.unsplash.com/photo-1579584425555-c3ce17fd4351?w=400&h=400&fit=crop",
		Category:    "Sushi",
	},
	{
		ID:          "6",
		Name:        "Tacos al Pastor",
		Description: "Tacos con carne de cerdo marinada, piña y cilantro",
		Price:       7500,
		ImageURL:    "https://images.unsplash.com/photo-1565299585323-38d6b0865b47?w=400&h=400&fit=crop",
		Category:    "Tacos",
	},
	{
		ID:          "7",
		Name:        "Sopa de Tomate",
		Description: "Sopa cremosa de tomate con albahaca y crutones",
		Price:       5500,
		ImageURL:    "https://images.unsplash.com/photo-1547592166-23ac45744acd?w=400&h=400&fit=crop",
		Category:    "Sopas",
	},
	{
		ID:          "8",
		Name:        "Tiramisú",
		Description: "Postre italiano con café, mascarpone y cacao",
		Price:       4500,
		ImageURL:    "https://images.unsplash.com/photo-1571877227200-a0d98ea607e9?w=400&h=400&fit=crop",
		Category:    "Postres",
	},
}

type CatalogService struct {
	products   []domain.Product
	baseURL    string
	imagesURL  string
	httpClient *http.Client
	price      func() int
}

func NewCatalogService(cfg *config.Config) *CatalogService {
	return &CatalogService{
		products:  sampleProducts,
		baseURL:   strings.TrimRight(cfg.OpenFoodFacts.BaseURL, "/"),
		imagesURL: strings.TrimRight(cfg.OpenFoodFacts.ImagesURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		price: func() int {
			return minLookupPrice + rand.IntN(maxLookupPrice-minLookupPrice+1)
		},
	}
}

func (s *CatalogService) ListProducts() []domain.Product {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Categories returns the distinct categories in catalog order.
func (s *CatalogService) Categories() []string {
	seen := make(map[string]bool)
	categories := make([]string, 0, len(s.products))
	for _, p := range s.products {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	return categories
}

func (s *CatalogService) ProductsByCategory(category string) []domain.Product {
	filtered := make([]domain.Product, 0)
	for _, p := range s.products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

type offProductResponse struct {
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	Code        string              `json:"code"`
	ProductName string              `json:"product_name"`
	GenericName string              `json:"generic_name"`
	Categories  string              `json:"categories"`
	Images      map[string]offImage `json:"images"`
}

type offImage struct {
	Rev json.Number `json:"rev"`
}

// LookupBarcode fetches a product from Open Food Facts. The upstream has no
// prices, so a random one is assigned.
func (s *CatalogService) LookupBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	productURL := fmt.Sprintf("%s/api/v0/product/%s.json", s.baseURL, url.PathEscape(barcode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBarcodeLookup, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBarcodeLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrProductNotFound
	}

	var body offProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrBarcodeLookup, err)
	}
	if body.Product == nil {
		return nil, domain.ErrProductNotFound
	}

	p := body.Product
	if p.Code == "" {
		p.Code = barcode
	}

	imageURL := s.imageURL(p, "front_es", imageResolution)
	if imageURL == "" {
		imageURL = s.imageURL(p, "front_en", imageResolution)
	}
	if imageURL == "" {
		imageURL = placeholderImageURL
	}

	return &domain.Product{
		ID:          barcode,
		Name:        orDefault(p.ProductName, "Unknown name"),
		Description: orDefault(p.GenericName, "No description"),
		Price:       s.price(),
		ImageURL:    imageURL,
		Category:    firstCategory(p.Categories),
	}, nil
}

// imageURL builds the static image path Open Food Facts serves for a product.
// Barcodes are zero-padded to 13 digits and split into 3/3/3/rest folders.
func (s *CatalogService) imageURL(p *offProduct, imageName, resolution string) string {
	info, ok := p.Images[imageName]
	if !ok {
		return ""
	}

	code := p.Code
	if len(code) < 13 {
		code = strings.Repeat("0", 13-len(code)) + code
	}
	folder := fmt.Sprintf("%s/%s/%s/%s", code[0:3], code[3:6], code[6:9], code[9:])

	var filename string
	if isDigits(imageName) {
		suffix := "." + resolution
		if resolution == "full" {
			suffix = ""
		}
		filename = imageName + suffix + ".jpg"
	} else {
		filename = fmt.Sprintf("%s.%s.%s.jpg", imageName, info.Rev.String(), resolution)
	}

	return fmt.Sprintf("%s/%s/%s", s.imagesURL, folder, filename)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstCategory(categories string) string {
	first, _, _ := strings.Cut(categories, ",")
	return strings.TrimSpace(first)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
