package assets

import (
	"strings"
	"testing"

	"github.com/krishkalaria12/snap-edit/config"
	"github.com/krishkalaria12/snap-edit/logger"
	"github.com/krishkalaria12/snap-edit/transformations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransformation(t *testing.T) {
	tests := []struct {
		name string
		req  RenderRequest
		want string
	}{
		{
			name: "restore",
			req:  RenderRequest{Width: 1000, Config: transformations.DefaultConfig(transformations.Restore)},
			want: "e_gen_restore/c_limit,w_1000",
		},
		{
			name: "background removal",
			req:  RenderRequest{Config: transformations.DefaultConfig(transformations.RemoveBackground)},
			want: "e_background_removal",
		},
		{
			name: "fill pads to the aspect ratio",
			req:  RenderRequest{Width: 1000, Height: 1334, Config: transformations.DefaultConfig(transformations.Fill)},
			want: "b_gen_fill,c_pad,w_1000,h_1334",
		},
		{
			name: "remove",
			req: RenderRequest{Config: transformations.Config{Remove: &transformations.RemoveParams{
				Prompt:       transformations.String("red car"),
				RemoveShadow: transformations.Bool(true),
				Multiple:     transformations.Bool(true),
			}}},
			want: "e_gen_remove:prompt_red%20car;multiple_true;remove-shadow_true",
		},
		{
			name: "recolor strips hash from color",
			req: RenderRequest{Config: transformations.Config{Recolor: &transformations.RecolorParams{
				Prompt:   transformations.String("shirt"),
				To:       transformations.String("#FF0000"),
				Multiple: transformations.Bool(false),
			}}},
			want: "e_gen_recolor:prompt_shirt;to-color_FF0000;multiple_false",
		},
		{
			name: "empty prompt is omitted",
			req:  RenderRequest{Config: transformations.DefaultConfig(transformations.Remove)},
			want: "e_gen_remove:multiple_true;remove-shadow_true",
		},
		{
			name: "false flags render nothing",
			req:  RenderRequest{Config: transformations.Config{Restore: transformations.Bool(false)}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildTransformation(tt.req))
		})
	}
}

func TestSearchExpression(t *testing.T) {
	assert.Equal(t, "folder=imaginify AND cat", SearchExpression("imaginify", "cat"))
}

func TestPublicIDFor(t *testing.T) {
	id := PublicIDFor("My Photo (1).png")
	assert.True(t, strings.HasPrefix(id, "My_Photo_1_"), id)
	assert.Len(t, id, len("My_Photo_1_")+8)

	assert.True(t, strings.HasPrefix(PublicIDFor("???.jpg"), "image_"))
}

func TestCloudinary_RenderURL(t *testing.T) {
	c, err := NewCloudinary(&config.Config{
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
		AssetFolder:         "imaginify",
	}, logger.Discard(), nil)
	require.NoError(t, err)

	u, err := c.RenderURL(RenderRequest{
		PublicID: "imaginify/car",
		Width:    1000,
		Height:   1000,
		Config:   transformations.DefaultConfig(transformations.Restore),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://res.cloudinary.com/demo/image/upload/"), u)
	assert.Contains(t, u, "e_gen_restore/c_limit,w_1000")
	assert.Contains(t, u, "imaginify/car")
}

func TestGCSClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(""))
	assert.Len(t, clientOptions("snap-edit-prod"), 1)
}
