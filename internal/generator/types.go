package generator

// ProbeKind 验证探针的统计量种类。
// 验证器按种类计算地面真值并选择容差。
type ProbeKind string

const (
	ProbeCount    ProbeKind = "count"
	ProbeMean     ProbeKind = "mean"
	ProbeSD       ProbeKind = "sd"
	ProbeSE       ProbeKind = "se"
	ProbeMedian   ProbeKind = "median"
	ProbeMin      ProbeKind = "min"
	ProbeMax      ProbeKind = "max"
	ProbeRange    ProbeKind = "range"
	ProbeSkewness ProbeKind = "skewness"
	ProbeKurtosis ProbeKind = "kurtosis"
	ProbeSESkew   ProbeKind = "se_skew"
	ProbeSEKurt   ProbeKind = "se_kurt"
	ProbeZSkew    ProbeKind = "z_skew"
	ProbeZKurt    ProbeKind = "z_kurt"

	ProbeFrequency     ProbeKind = "frequency"
	ProbePercent       ProbeKind = "percent"
	ProbeCumulativePct ProbeKind = "cumulative_pct"

	ProbeCorrelation ProbeKind = "correlation"
	ProbeRSquared    ProbeKind = "r_squared"
	ProbeFisherZ     ProbeKind = "fisher_z"

	ProbeAlpha        ProbeKind = "cronbach_alpha"
	ProbeItemTotalR   ProbeKind = "item_total_r"
	ProbeItemMean     ProbeKind = "item_mean"
	ProbeItemSD       ProbeKind = "item_sd"
	ProbeItemVariance ProbeKind = "item_variance"

	ProbeGroupN       ProbeKind = "group_n"
	ProbeGroupMean    ProbeKind = "group_mean"
	ProbeGroupSD      ProbeKind = "group_sd"
	ProbeMeanDiff     ProbeKind = "mean_diff"
	ProbeTStat        ProbeKind = "t_stat"
	ProbeDF           ProbeKind = "df"
	ProbePValue       ProbeKind = "p_value"
	ProbeCohensD      ProbeKind = "cohens_d"
	ProbeHomogeneityP ProbeKind = "variance_homogeneity_p"

	ProbeObserved   ProbeKind = "observed"
	ProbeChiSquare  ProbeKind = "chi_square"
	ProbeChiDF      ProbeKind = "chi_df"
	ProbeChiP       ProbeKind = "chi_p"
	ProbeCramersV   ProbeKind = "cramers_v"
	ProbeGrandTotal ProbeKind = "grand_total"

	ProbeRowCount     ProbeKind = "row_count"
	ProbeColumnCount  ProbeKind = "column_count"
	ProbeMissingTotal ProbeKind = "missing_total"
	ProbeCompleteness ProbeKind = "completeness"
	ProbeValidN       ProbeKind = "valid_n"
	ProbeMissingN     ProbeKind = "missing_n"
	ProbePctComplete  ProbeKind = "pct_complete"
	ProbePctMissing   ProbeKind = "pct_missing"
)

// Probe 把一个统计量绑定到产物中的具体坐标，供验证器回读比对。
type Probe struct {
	Name      string    `json:"name"`
	Kind      ProbeKind `json:"kind"`
	Cell      string    `json:"cell"`
	Columns   []string  `json:"columns,omitempty"`    // 涉及的列（首列为主列；信度任务为条目列表）
	Group     any       `json:"group,omitempty"`      // 组比较的组取值
	Value     any       `json:"value,omitempty"`      // 频数/列联的条件取值
	ValueCol  any       `json:"value_col,omitempty"`  // 列联表列变量的条件取值
	ItemIndex int       `json:"item_index,omitempty"` // 条目-总分相关的条目下标
}

// Write 一次单元格写入：Formula 非空时写公式，否则写字面值（仅限标签/表头）
type Write struct {
	Cell    string `json:"cell"`
	Formula string `json:"formula,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// Region 数据区域矩形（1 起始，闭区间），公式覆盖率在此范围内统计
type Region struct {
	FirstRow int `json:"first_row"`
	FirstCol int `json:"first_col"`
	LastRow  int `json:"last_row"`
	LastCol  int `json:"last_col"`
}

// Empty 区域是否为空
func (r Region) Empty() bool {
	return r.LastRow < r.FirstRow || r.LastCol < r.FirstCol
}

// HelperRange 本次生成分配到的隐藏辅助列区段
type HelperRange struct {
	Column   int    `json:"column"`
	Letter   string `json:"letter"`
	FirstRow int    `json:"first_row"`
	LastRow  int    `json:"last_row"`
	Purpose  string `json:"purpose"`
}

// Sheet 一次任务生成的产物 sheet：有序写入、辅助列记录、验证探针。
// 数据区域内除标签外的单元格要么为空要么是公式——出现字面数值属于契约违规。
type Sheet struct {
	Name        string        `json:"name"`
	TaskID      string        `json:"task_id"`
	Writes      []Write       `json:"writes"`
	Helpers     []HelperRange `json:"helpers,omitempty"`
	Probes      []Probe       `json:"probes,omitempty"`
	DataRegion  Region        `json:"data_region"`
	ErrorMarker string        `json:"error_marker,omitempty"` // 非空表示 InputError 占位标记
}

// FormulaCount 公式写入个数
func (s *Sheet) FormulaCount() int {
	n := 0
	for _, w := range s.Writes {
		if w.Formula != "" {
			n++
		}
	}
	return n
}

// ProbeByName 按检查名查找探针
func (s *Sheet) ProbeByName(name string) (*Probe, bool) {
	for i := range s.Probes {
		if s.Probes[i].Name == name {
			return &s.Probes[i], true
		}
	}
	return nil, false
}
