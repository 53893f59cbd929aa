package m3g

type Group struct {
	Node
	Children []Object
}

func NewGroup(name string) *Group {
	return &Group{Node: newNode(name)}
}

func (g *Group) ObjectType() byte { return TypeGroup }

func (g *Group) AddChild(child Object) {
	g.Children = append(g.Children, child)
}

func (g *Group) references() []Object {
	return append(nonNil(g.Children...), g.Node.references()...)
}

func (g *Group) References() []Object { return g.references() }

func (g *Group) encode(w *Writer) {
	g.Node.encode(w)
	w.Refs(g.Children)
}

func (g *Group) Encode(w *Writer) { g.encode(w) }

type World struct {
	Group
	ActiveCamera *Camera
	Background   *Background
}

func NewWorld(name string) *World {
	return &World{Group: Group{Node: newNode(name)}}
}

func (wo *World) ObjectType() byte { return TypeWorld }

func (wo *World) References() []Object {
	return append(nonNil(wo.Background, wo.ActiveCamera), wo.Group.references()...)
}

func (wo *World) Encode(w *Writer) {
	wo.Group.encode(w)
	w.Ref(wo.ActiveCamera)
	w.Ref(wo.Background)
}

type Background struct {
	Object3D
	Color             ColorRGBA
	Image             *Image2D
	ModeX             byte
	ModeY             byte
	CropX             int32
	CropY             int32
	CropWidth         int32
	CropHeight        int32
	DepthClearEnabled bool
	ColorClearEnabled bool
}

func NewBackground() *Background {
	return &Background{
		Color:             ColorRGBA{0, 0, 0, 0},
		ModeX:             BackgroundBorder,
		ModeY:             BackgroundBorder,
		DepthClearEnabled: true,
		ColorClearEnabled: true,
	}
}

func (b *Background) ObjectType() byte { return TypeBackground }

func (b *Background) References() []Object {
	return append(nonNil(b.Image), b.Object3D.references()...)
}

func (b *Background) Encode(w *Writer) {
	b.Object3D.encode(w)
	w.ColorRGBA(b.Color)
	w.Ref(b.Image)
	w.Byte(b.ModeX)
	w.Byte(b.ModeY)
	w.Int32(b.CropX)
	w.Int32(b.CropY)
	w.Int32(b.CropWidth)
	w.Int32(b.CropHeight)
	w.Bool(b.DepthClearEnabled)
	w.Bool(b.ColorClearEnabled)
}

type Camera struct {
	Node
	ProjectionType byte
	Projection     [16]float32 // generic projection, row major
	FovY           float32     // degrees
	AspectRatio    float32
	Near           float32
	Far            float32
}

func NewCamera(name string) *Camera {
	return &Camera{
		Node:           newNode(name),
		ProjectionType: ProjectionPerspective,
		FovY:           45,
		AspectRatio:    1,
		Near:           0.1,
		Far:            100,
	}
}

func (c *Camera) ObjectType() byte { return TypeCamera }

func (c *Camera) References() []Object { return c.Node.references() }

func (c *Camera) Encode(w *Writer) {
	c.Node.encode(w)
	w.Byte(c.ProjectionType)
	if c.ProjectionType == ProjectionGeneric {
		w.Floats(c.Projection[:]...)
	} else {
		w.Floats(c.FovY, c.AspectRatio, c.Near, c.Far)
	}
}

type Light struct {
	Node
	AttenuationConstant  float32
	AttenuationLinear    float32
	AttenuationQuadratic float32
	Color                ColorRGB
	Mode                 byte
	Intensity            float32
	SpotAngle            float32 // degrees
	SpotExponent         float32
}

func NewLight(name string, mode byte) *Light {
	return &Light{
		Node:                newNode(name),
		AttenuationConstant: 1,
		Color:               ColorRGB{255, 255, 255},
		Mode:                mode,
		Intensity:           1,
		SpotAngle:           45,
	}
}

func (l *Light) ObjectType() byte { return TypeLight }

func (l *Light) References() []Object { return l.Node.references() }

func (l *Light) Encode(w *Writer) {
	l.Node.encode(w)
	w.Floats(l.AttenuationConstant, l.AttenuationLinear, l.AttenuationQuadratic)
	w.ColorRGB(l.Color)
	w.Byte(l.Mode)
	w.Floats(l.Intensity, l.SpotAngle, l.SpotExponent)
}
