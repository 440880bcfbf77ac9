package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"team-shortlink/internal/metadata"
	"team-shortlink/internal/models"
	"team-shortlink/internal/shortcode"

	"gorm.io/gorm"
)

// PageSize is the fixed page size for link listings.
const PageSize = 10

// WarnMetadataFetch is returned as a non-fatal warning when the target page
// could not be fetched; the link is created regardless.
const WarnMetadataFetch = "could not fetch page metadata from the target URL"

var domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

type LinkService struct {
	db      *gorm.DB
	fetcher *metadata.Fetcher
}

func NewLinkService(db *gorm.DB, fetcher *metadata.Fetcher) *LinkService {
	return &LinkService{db: db, fetcher: fetcher}
}

// LinkID builds the composite short-link key.
func LinkID(domain, path string) string {
	return domain + "_" + path
}

// Create shortens a URL. With no custom path the path is derived from a
// freshly allocated identifier; a custom path must be unused. The returned
// warning is non-empty when page metadata could not be fetched.
func (s *LinkService) Create(ctx context.Context, teamID, memberID, longURL, domain, customPath string) (*models.ShortLink, string, error) {
	longURL = strings.TrimSpace(longURL)
	domain = strings.ToLower(strings.TrimSpace(domain))
	customPath = strings.TrimSpace(customPath)

	if err := validateCreate(longURL, domain, customPath); err != nil {
		return nil, "", err
	}

	var path string
	if customPath != "" {
		exists, err := s.exists(domain, customPath)
		if err != nil {
			return nil, "", err
		}
		if exists {
			return nil, "", ErrDuplicatePath
		}
		path = customPath
	} else {
		allocated, err := s.allocatePath(longURL, domain)
		if err != nil {
			return nil, "", err
		}
		path = allocated
	}

	var warning string
	var meta metadata.PageMeta
	if s.fetcher != nil {
		fetched, err := s.fetcher.Fetch(ctx, longURL)
		if err != nil {
			log.Printf("Metadata fetch failed for %s: %v", longURL, err)
			warning = WarnMetadataFetch
		} else {
			meta = fetched
		}
	}

	link := &models.ShortLink{
		ID:          LinkID(domain, path),
		Domain:      domain,
		Path:        path,
		LongURL:     longURL,
		ShortURL:    domain + "/" + path,
		TeamID:      teamID,
		CreatedByID: memberID,
		UpdatedByID: memberID,
		Title:       meta.Title,
		SiteName:    meta.SiteName,
		Description: meta.Description,
		Image:       meta.Image,
		Tags:        models.TagSet{},
	}

	if err := s.db.Create(link).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, "", ErrDuplicatePath
		}
		return nil, "", err
	}
	return link, warning, nil
}

// Get resolves a (domain, path) pair regardless of tenant; the redirect path
// uses it directly.
func (s *LinkService) Get(domain, path string) (*models.ShortLink, error) {
	var link models.ShortLink
	err := s.db.First(&link, "id = ?", LinkID(domain, path)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Update appends a tag and/or replaces the memo. At least one of the two
// must be set.
func (s *LinkService) Update(domain, path, teamID, memberID, tag, memo string) (*models.ShortLink, error) {
	if tag == "" && memo == "" {
		return nil, ErrNothingToUpdate
	}

	link, err := s.ownedLink(domain, path, teamID)
	if err != nil {
		return nil, err
	}

	if tag != "" {
		link.Tags = link.Tags.Add(tag)
	}
	if memo != "" {
		link.Memo = memo
	}
	link.UpdatedByID = memberID

	// Read-modify-write: two concurrent updates on the same link can race
	// and the second save drops the first's tag. An atomic add-to-set
	// storage primitive would close this window.
	if err := s.db.Save(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveTag removes a tag from the link's set. Removing an absent tag is a
// no-op, not an error.
func (s *LinkService) RemoveTag(domain, path, teamID, memberID, tag string) (*models.ShortLink, error) {
	link, err := s.ownedLink(domain, path, teamID)
	if err != nil {
		return nil, err
	}

	link.Tags = link.Tags.Remove(tag)
	link.UpdatedByID = memberID

	if err := s.db.Save(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// Delete hard-deletes a link owned by the team.
func (s *LinkService) Delete(domain, path, teamID string) error {
	link, err := s.ownedLink(domain, path, teamID)
	if err != nil {
		return err
	}
	return s.db.Delete(link).Error
}

// List pages a team's links newest first. The cursor is an opaque keyset
// token; an empty token starts from the newest link.
func (s *LinkService) List(teamID, cursorToken string) ([]models.ShortLink, string, bool, error) {
	q := s.db.Where("team_id = ?", teamID)
	if cursorToken != "" {
		cur, err := decodeCursor(cursorToken)
		if err != nil {
			return nil, "", false, ErrInvalidCursor
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}

	var links []models.ShortLink
	if err := q.Order("created_at DESC, id DESC").Limit(PageSize + 1).Find(&links).Error; err != nil {
		return nil, "", false, err
	}

	more := len(links) > PageSize
	if more {
		links = links[:PageSize]
	}

	next := ""
	if more {
		last := links[len(links)-1]
		next = encodeCursor(listCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return links, next, more, nil
}

func (s *LinkService) ownedLink(domain, path, teamID string) (*models.ShortLink, error) {
	link, err := s.Get(domain, path)
	if err != nil {
		return nil, err
	}
	if link.TeamID != teamID {
		return nil, ErrForbidden
	}
	return link, nil
}

func (s *LinkService) exists(domain, path string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ShortLink{}).Where("id = ?", LinkID(domain, path)).Count(&count).Error
	return count > 0, err
}

// allocatePath inserts an allocation record and encodes its auto-incremented
// id. Allocated ids never repeat, but an encoded path may collide with an
// earlier custom path on the same domain, so re-allocate on collision.
func (s *LinkService) allocatePath(longURL, domain string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		rec := models.LinkIdentifier{LongURL: longURL}
		if err := s.db.Create(&rec).Error; err != nil {
			return "", err
		}
		path := shortcode.Encode(rec.ID)
		if path == "" {
			continue
		}
		exists, err := s.exists(domain, path)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
	}
	return "", errors.New("could not allocate an unused short path")
}

func validateCreate(longURL, domain, customPath string) error {
	var messages []string

	parsed, err := url.Parse(longURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		messages = append(messages, "String posted was not valid URL")
	}

	if len(domain) < 1 || len(domain) > 25 {
		messages = append(messages, "Domain name should be between 1 and 25 characters")
	} else if !domainPattern.MatchString(domain) {
		messages = append(messages, "Invalid domain name")
	}

	if customPath != "" && !shortcode.ValidPath(customPath) {
		messages = append(messages, "Invalid custom path name, should be lower case alphabet and number")
	}

	if len(messages) > 0 {
		return Validation(messages...)
	}
	return nil
}

type listCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

func encodeCursor(cur listCursor) string {
	data, _ := json.Marshal(cur)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(token string) (listCursor, error) {
	var cur listCursor
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cur, err
	}
	if err := json.Unmarshal(data, &cur); err != nil {
		return cur, err
	}
	return cur, nil
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
