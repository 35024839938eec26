package service

import (
	"encoding/base64"
	"fmt"
)

var (
	avatarColors = []string{"#6366f1", "#ec4899", "#22c55e", "#f97316", "#8b5cf6", "#06b6d4"}
	avatarShapes = []string{
		`<rect x="20" y="20" width="60" height="60" fill="#ffffff" />`,
		`<circle cx="50" cy="50" r="30" fill="#ffffff" />`,
		`<polygon points="50,20 80,80 20,80" fill="#ffffff" />`,
	}
)

// GeometricAvatar renders a deterministic SVG avatar for seed as a data URI.
func GeometricAvatar(seed string) string {
	var hash int32
	for _, r := range seed {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := int(hash)
	color := avatarColors[abs(h%len(avatarColors))]
	shape := avatarShapes[abs((h/len(avatarColors))%len(avatarShapes))]

	svg := fmt.Sprintf(`<svg viewBox="0 0 100 100" xmlns="http://www.w3.org/2000/svg"><rect width="100" height="100" fill="%s" />%s</svg>`, color, shape)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
