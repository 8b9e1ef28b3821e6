package note

import "testing"

func TestDemoteHeadings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "already h2",
			in:   "## Profile\ntext\n### Career\n",
			want: "## Profile\ntext\n### Career\n",
		},
		{
			name: "h1 shifts everything",
			in:   "# Profile\ntext\n## Career\n",
			want: "## Profile\ntext\n### Career\n",
		},
		{
			name: "indented heading",
			in:   "  # Profile\n",
			want: "  ## Profile\n",
		},
		{
			name: "code block untouched",
			in:   "# Profile\n\n```sh\n# not a heading\n```\n",
			want: "## Profile\n\n```sh\n# not a heading\n```\n",
		},
		{
			name: "caps at h6",
			in:   "# Top\n###### Deep\n",
			want: "## Top\n###### Deep\n",
		},
		{
			name: "no headings",
			in:   "plain text\n- item\n",
			want: "plain text\n- item\n",
		},
		{
			name: "setext left alone",
			in:   "Title\n=====\n",
			want: "Title\n=====\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DemoteHeadings(tt.in, 2); got != tt.want {
				t.Errorf("DemoteHeadings =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestDemoteHeadings_Disabled(t *testing.T) {
	in := "# Profile\n"
	if got := DemoteHeadings(in, 0); got != in {
		t.Errorf("top=0 changed input: %q", got)
	}
	if got := DemoteHeadings(in, 1); got != in {
		t.Errorf("top=1 changed input: %q", got)
	}
}
