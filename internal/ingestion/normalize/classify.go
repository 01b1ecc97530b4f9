package normalize

import (
	"regexp"
	"strings"

	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
)

var (
	categoryRe   = regexp.MustCompile(`(?i)\bP\s?(25|50|100|250|500|1000|1500|2000)\b`)
	genderCodeRe = regexp.MustCompile(`\b(DM|DD|DX)\b`)
	menRe        = regexp.MustCompile(`\b(HOMMES?|MASC(?:ULIN)?|MESSIEURS)\b`)
	womenRe      = regexp.MustCompile(`\b(DAMES?|FEMMES?|F[EÉ]MININ)\b`)
	mixedRe      = regexp.MustCompile(`\bMIXTES?\b`)
)

func parseCategory(haystacks ...string) tournaments.Category {
	for _, h := range haystacks {
		if m := categoryRe.FindStringSubmatch(h); m != nil {
			return tournaments.Category("P" + m[1])
		}
	}
	return tournaments.CategoryUnknown
}

// parseGender reports confident=false when it fell back to mixed.
func parseGender(badges []string, haystacks ...string) (tournaments.Gender, bool) {
	for _, b := range badges {
		switch strings.ToUpper(strings.TrimSpace(b)) {
		case "H":
			return tournaments.GenderMen, true
		case "F":
			return tournaments.GenderWomen, true
		}
	}
	all := strings.ToUpper(strings.Join(append(append([]string{}, badges...), haystacks...), " "))
	if m := genderCodeRe.FindStringSubmatch(all); m != nil {
		switch m[1] {
		case "DM":
			return tournaments.GenderMen, true
		case "DD":
			return tournaments.GenderWomen, true
		default:
			return tournaments.GenderMixed, true
		}
	}
	switch {
	case mixedRe.MatchString(all):
		return tournaments.GenderMixed, true
	case womenRe.MatchString(all):
		return tournaments.GenderWomen, true
	case menRe.MatchString(all):
		return tournaments.GenderMen, true
	}
	return tournaments.GenderMixed, false
}

// parseLevel reads an explicit tier badge, else derives it from the category.
func parseLevel(badges []string, category tournaments.Category) tournaments.Level {
	for _, b := range badges {
		s := strings.ToLower(b)
		switch {
		case strings.Contains(s, "international"), strings.Contains(s, "élite"), strings.Contains(s, "elite"):
			return tournaments.LevelElite
		case strings.Contains(s, "national"):
			return tournaments.LevelNational
		case strings.Contains(s, "régional"), strings.Contains(s, "regional"):
			return tournaments.LevelRegional
		case strings.Contains(s, "départemental"), strings.Contains(s, "departemental"), s == "club", strings.HasPrefix(s, "niveau club"):
			return tournaments.LevelClub
		}
	}
	switch category {
	case tournaments.CategoryP25, tournaments.CategoryP50, tournaments.CategoryP100:
		return tournaments.LevelClub
	case tournaments.CategoryP250:
		return tournaments.LevelRegional
	case tournaments.CategoryP500, tournaments.CategoryP1000:
		return tournaments.LevelNational
	case tournaments.CategoryP1500, tournaments.CategoryP2000:
		return tournaments.LevelElite
	}
	return tournaments.LevelUnknown
}
