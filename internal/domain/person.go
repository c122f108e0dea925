package domain

// Person 是演职员信息（由 grabber 在解析 credits 时构造，构造后不再修改）。
type Person struct {
	Name      string
	Role      string // actor / director / presenter ...
	Character string // 扮演的角色，可为空
}

func (p Person) String() string { return p.Name }
