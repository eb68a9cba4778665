package database

// Civil dates (start_date, end_date, record_day) are stored as YYYY-MM-DD
// text so both dialects compare them lexicographically in day order.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    email VARCHAR(255),
    display_name VARCHAR(255),
    role VARCHAR(16) NOT NULL DEFAULT 'member',
    telegram_id BIGINT NULL UNIQUE,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS memberships (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    tier VARCHAR(32) NOT NULL,
    is_pro TINYINT(1) NOT NULL DEFAULT 0,
    can_create_plan TINYINT(1) NOT NULL DEFAULT 0,
    expires_at DATETIME(6) NOT NULL,
    created_at DATETIME(6) NOT NULL,
    KEY idx_memberships_user (user_id, expires_at),
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS goal_drafts (
    user_id BIGINT PRIMARY KEY,
    goal TEXT NOT NULL,
    reasons TEXT,
    updated_at DATETIME(6) NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS quit_plans (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    goal TEXT NOT NULL,
    reasons TEXT,
    start_date CHAR(10) NOT NULL,
    status VARCHAR(16) NOT NULL,
    active_owner BIGINT NULL UNIQUE,
    coach_id BIGINT NULL,
    report_url VARCHAR(512),
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL,
    KEY idx_quit_plans_coach (coach_id, status),
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS smoking_statuses (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id BIGINT NULL,
    cigarette_count INT NOT NULL,
    price_per_pack DOUBLE NOT NULL,
    suction_frequency VARCHAR(16) NOT NULL,
    created_at DATETIME(6) NOT NULL,
    KEY idx_smoking_statuses_user (user_id, plan_id),
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS quit_stages (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    plan_id BIGINT NOT NULL,
    position INT NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    start_date CHAR(10) NOT NULL,
    end_date CHAR(10) NOT NULL,
    status VARCHAR(16) NOT NULL,
    max_daily_cigarette INT NULL,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL,
    KEY idx_quit_stages_plan (plan_id, position),
    KEY idx_quit_stages_status (status, end_date),
    FOREIGN KEY (plan_id) REFERENCES quit_plans(id)
)`,
	`CREATE TABLE IF NOT EXISTS progress_records (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id BIGINT NOT NULL,
    stage_id BIGINT NOT NULL,
    record_day CHAR(10) NOT NULL,
    recorded_at DATETIME(6) NOT NULL,
    cigarette_count INT NOT NULL,
    note TEXT,
    money_spent DOUBLE NOT NULL DEFAULT 0,
    UNIQUE KEY uniq_progress_day (user_id, plan_id, stage_id, record_day),
    KEY idx_progress_stage_day (stage_id, record_day),
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (plan_id) REFERENCES quit_plans(id),
    FOREIGN KEY (stage_id) REFERENCES quit_stages(id)
)`,
	`CREATE TABLE IF NOT EXISTS badges (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL UNIQUE,
    description TEXT,
    condition_type VARCHAR(32) NOT NULL,
    condition_value DOUBLE NOT NULL,
    condition_unit VARCHAR(32),
    pro_only TINYINT(1) NOT NULL DEFAULT 0,
    created_at DATETIME(6) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS user_badges (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    badge_id BIGINT NOT NULL,
    plan_id BIGINT NULL,
    granted_at DATETIME(6) NOT NULL,
    UNIQUE KEY uniq_user_badge (user_id, badge_id),
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (badge_id) REFERENCES badges(id)
)`,
	`CREATE TABLE IF NOT EXISTS coaches (
    user_id BIGINT PRIMARY KEY,
    bio TEXT,
    max_users INT NOT NULL DEFAULT 10,
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    kind VARCHAR(32) NOT NULL,
    message TEXT NOT NULL,
    created_at DATETIME(6) NOT NULL,
    read_at DATETIME(6) NULL,
    KEY idx_notifications_user (user_id, created_at),
    FOREIGN KEY (user_id) REFERENCES users(id)
)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT,
    display_name TEXT,
    role TEXT NOT NULL DEFAULT 'member',
    telegram_id INTEGER NULL UNIQUE,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS memberships (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    tier TEXT NOT NULL,
    is_pro INTEGER NOT NULL DEFAULT 0,
    can_create_plan INTEGER NOT NULL DEFAULT 0,
    expires_at DATETIME NOT NULL,
    created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships (user_id, expires_at)`,
	`CREATE TABLE IF NOT EXISTS goal_drafts (
    user_id INTEGER PRIMARY KEY REFERENCES users(id),
    goal TEXT NOT NULL,
    reasons TEXT,
    updated_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS quit_plans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    goal TEXT NOT NULL,
    reasons TEXT,
    start_date TEXT NOT NULL,
    status TEXT NOT NULL,
    active_owner INTEGER NULL UNIQUE,
    coach_id INTEGER NULL,
    report_url TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_quit_plans_coach ON quit_plans (coach_id, status)`,
	`CREATE TABLE IF NOT EXISTS smoking_statuses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    plan_id INTEGER NULL,
    cigarette_count INTEGER NOT NULL,
    price_per_pack REAL NOT NULL,
    suction_frequency TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_smoking_statuses_user ON smoking_statuses (user_id, plan_id)`,
	`CREATE TABLE IF NOT EXISTS quit_stages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plan_id INTEGER NOT NULL REFERENCES quit_plans(id),
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    status TEXT NOT NULL,
    max_daily_cigarette INTEGER NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_quit_stages_plan ON quit_stages (plan_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_quit_stages_status ON quit_stages (status, end_date)`,
	`CREATE TABLE IF NOT EXISTS progress_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    plan_id INTEGER NOT NULL REFERENCES quit_plans(id),
    stage_id INTEGER NOT NULL REFERENCES quit_stages(id),
    record_day TEXT NOT NULL,
    recorded_at DATETIME NOT NULL,
    cigarette_count INTEGER NOT NULL,
    note TEXT,
    money_spent REAL NOT NULL DEFAULT 0,
    UNIQUE (user_id, plan_id, stage_id, record_day)
)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_stage_day ON progress_records (stage_id, record_day)`,
	`CREATE TABLE IF NOT EXISTS badges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    condition_type TEXT NOT NULL,
    condition_value REAL NOT NULL,
    condition_unit TEXT,
    pro_only INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS user_badges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    badge_id INTEGER NOT NULL REFERENCES badges(id),
    plan_id INTEGER NULL,
    granted_at DATETIME NOT NULL,
    UNIQUE (user_id, badge_id)
)`,
	`CREATE TABLE IF NOT EXISTS coaches (
    user_id INTEGER PRIMARY KEY REFERENCES users(id),
    bio TEXT,
    max_users INTEGER NOT NULL DEFAULT 10
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    read_at DATETIME NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at)`,
}
