package m3g

import "fmt"

// Object type identifiers as written in the object header.
const (
	TypeHeader              = 0
	TypeAnimationController = 1
	TypeAnimationTrack      = 2
	TypeAppearance          = 3
	TypeBackground          = 4
	TypeCamera              = 5
	TypeCompositingMode     = 6
	TypeFog                 = 7
	TypePolygonMode         = 8
	TypeGroup               = 9
	TypeImage2D             = 10
	TypeTriangleStripArray  = 11
	TypeLight               = 12
	TypeMaterial            = 13
	TypeMesh                = 14
	TypeMorphingMesh        = 15
	TypeSkinnedMesh         = 16
	TypeTexture2D           = 17
	TypeSprite3D            = 18
	TypeKeyframeSequence    = 19
	TypeVertexArray         = 20
	TypeVertexBuffer        = 21
	TypeWorld               = 22
	TypeExternalReference   = 0xff
)

var typeNames = map[byte]string{
	TypeHeader:              "Header",
	TypeAnimationController: "AnimationController",
	TypeAnimationTrack:      "AnimationTrack",
	TypeAppearance:          "Appearance",
	TypeBackground:          "Background",
	TypeCamera:              "Camera",
	TypeCompositingMode:     "CompositingMode",
	TypeFog:                 "Fog",
	TypePolygonMode:         "PolygonMode",
	TypeGroup:               "Group",
	TypeImage2D:             "Image2D",
	TypeTriangleStripArray:  "TriangleStripArray",
	TypeLight:               "Light",
	TypeMaterial:            "Material",
	TypeMesh:                "Mesh",
	TypeMorphingMesh:        "MorphingMesh",
	TypeSkinnedMesh:         "SkinnedMesh",
	TypeTexture2D:           "Texture2D",
	TypeSprite3D:            "Sprite3D",
	TypeKeyframeSequence:    "KeyframeSequence",
	TypeVertexArray:         "VertexArray",
	TypeVertexBuffer:        "VertexBuffer",
	TypeWorld:               "World",
	TypeExternalReference:   "ExternalReference",
}

func TypeName(t byte) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// Background image modes
const (
	BackgroundBorder = 32
	BackgroundRepeat = 33
)

// Camera projections
const (
	ProjectionGeneric     = 48
	ProjectionParallel    = 49
	ProjectionPerspective = 50
)

// CompositingMode blending
const (
	BlendAlpha      = 64
	BlendAlphaAdd   = 65
	BlendModulate   = 66
	BlendModulateX2 = 67
	BlendReplace    = 68
)

// Fog modes
const (
	FogExponential = 80
	FogLinear      = 81
)

// Light modes
const (
	LightAmbient     = 128
	LightDirectional = 129
	LightOmni        = 130
	LightSpot        = 131
)

// PolygonMode
const (
	CullBack    = 160
	CullFront   = 161
	CullNone    = 162
	ShadeFlat   = 164
	ShadeSmooth = 165
	WindingCCW  = 168
	WindingCW   = 169
)

// Keyframe interpolation and repeat modes
const (
	InterpolationLinear = 176
	InterpolationSlerp  = 177
	InterpolationSpline = 178
	InterpolationSquad  = 179
	InterpolationStep   = 180

	RepeatConstant = 192
	RepeatLoop     = 193
)

// Image2D formats
const (
	FormatAlpha          = 96
	FormatLuminance      = 97
	FormatLuminanceAlpha = 98
	FormatRGB            = 99
	FormatRGBA           = 100
)

// Texture2D filters, functions and wrapping
const (
	FilterBaseLevel = 208
	FilterLinear    = 209
	FilterNearest   = 210

	FuncAdd      = 224
	FuncBlend    = 225
	FuncDecal    = 226
	FuncModulate = 227
	FuncReplace  = 228

	WrapClamp  = 240
	WrapRepeat = 241
)

// Node alignment targets
const (
	AlignNone   = 144
	AlignOrigin = 145
	AlignXAxis  = 146
	AlignYAxis  = 147
	AlignZAxis  = 148
)

// Animation track properties
const (
	PropertyAlpha         = 256
	PropertyAmbientColor  = 257
	PropertyColor         = 258
	PropertyCrop          = 259
	PropertyDensity       = 260
	PropertyDiffuseColor  = 261
	PropertyEmissiveColor = 262
	PropertyFarDistance   = 263
	PropertyFieldOfView   = 264
	PropertyIntensity     = 265
	PropertyMorphWeights  = 266
	PropertyNearDistance  = 267
	PropertyOrientation   = 268
	PropertyPickability   = 269
	PropertyScale         = 270
	PropertyShininess     = 271
	PropertySpecularColor = 272
	PropertySpotAngle     = 273
	PropertySpotExponent  = 274
	PropertyTranslation   = 275
	PropertyVisibility    = 276
)

// TriangleStripArray index encodings
const (
	IndexImplicit32 = 0
	IndexImplicit8  = 1
	IndexImplicit16 = 2
	IndexExplicit32 = 128
	IndexExplicit8  = 129
	IndexExplicit16 = 130
)
