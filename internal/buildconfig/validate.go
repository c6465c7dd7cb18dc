package buildconfig

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is wrapped by every error returned from Validate.
var ErrInvalidOptions = errors.New("invalid build options")

// Validate checks that exactly one mode branch is populated and that it
// agrees with Mode.
func (o BuildOptions) Validate() error {
	var errs []error

	dev := o.devFields()
	prod := o.prodFields()

	switch {
	case len(dev) > 0 && len(prod) > 0:
		errs = append(errs, fmt.Errorf("both development %v and production %v fields are set", dev, prod))
	case len(dev) == 0 && len(prod) == 0:
		errs = append(errs, errors.New("neither development nor production fields are set"))
	case o.Mode.IsDev() && len(dev) == 0:
		errs = append(errs, fmt.Errorf("mode is development but production fields %v are set", prod))
	case !o.Mode.IsDev() && len(prod) == 0:
		errs = append(errs, fmt.Errorf("mode is production but development fields %v are set", dev))
	}

	if want := namingFor(o.Mode); o.Output.Naming != want {
		errs = append(errs, fmt.Errorf("output naming is %s, want %s", o.Output.Naming, want))
	}

	_, asset, ok := o.AssetInlining()
	switch {
	case !ok:
		errs = append(errs, errors.New("asset inlining rule is missing"))
	case asset.Options.Limit != AssetInlineLimit:
		errs = append(errs, fmt.Errorf("asset inlining limit is %d, want %d", asset.Options.Limit, AssetInlineLimit))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
}

func namingFor(mode Mode) HashScheme {
	if mode.IsDev() {
		return ContentHash
	}
	return ChunkHash
}

func (o BuildOptions) devFields() []string {
	var fields []string
	if o.DevServer != nil {
		fields = append(fields, "devServer")
	}
	if o.Devtool != "" {
		fields = append(fields, "devtool")
	}
	if o.HasPlugin(HotModuleReplacementPlugin) {
		fields = append(fields, HotModuleReplacementPlugin.String())
	}
	if o.HasPlugin(NoEmitOnErrorsPlugin) {
		fields = append(fields, NoEmitOnErrorsPlugin.String())
	}
	if r, ok := o.StyleRule(); ok && !r.Extracts() {
		fields = append(fields, "inline styles")
	}
	return fields
}

func (o BuildOptions) prodFields() []string {
	var fields []string
	if !o.Entry.IsSingle() {
		fields = append(fields, "named entries")
	}
	if o.HasPlugin(ExtractTextPlugin) {
		fields = append(fields, ExtractTextPlugin.String())
	}
	if o.HasPlugin(CommonsChunkPlugin) {
		fields = append(fields, CommonsChunkPlugin.String())
	}
	if r, ok := o.StyleRule(); ok && r.Extracts() {
		fields = append(fields, "extracted styles")
	}
	return fields
}
