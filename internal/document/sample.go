package document

import "github.com/rfaga/storyteller/internal/typeid"

// NewSampleScene returns a small playable scene: a character standing on a
// ground strip with one ledge to jump to.
func NewSampleScene() []Object {
	return []Object{
		{
			ID:         typeid.NewObjectID(),
			Kind:       KindProp,
			X:          400,
			Y:          580,
			Width:      800,
			Height:     40,
			TextureRef: PlaceholderTexture,
			Shape:      ShapeRectangle,
			Name:       "Ground",
		},
		{
			ID:         typeid.NewObjectID(),
			Kind:       KindProp,
			X:          560,
			Y:          440,
			Width:      180,
			Height:     24,
			TextureRef: PlaceholderTexture,
			Shape:      ShapeRectangle,
			Name:       "Ledge",
		},
		{
			ID:         typeid.NewObjectID(),
			Kind:       KindCharacter,
			X:          120,
			Y:          520,
			Width:      32,
			Height:     48,
			TextureRef: PlaceholderTexture,
			Name:       "Player",
		},
	}
}
