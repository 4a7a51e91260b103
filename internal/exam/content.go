package exam

import (
	"fmt"
	"path/filepath"
)

// Image index ranges per stage. Stage images are numbered files in the
// content directory (image1.jpg … image34.jpg).
const (
	part12ImageLo = 1
	part12ImageHi = 11
	part2ImageLo  = 12
	part2ImageHi  = 25
	part3ImageLo  = 26
	part3ImageHi  = 34
)

// part1Pool is the warm-up question pool; each exam draws three at random.
var part1Pool = []string{
	"👤 Tell me a bit about yourself.",
	"🎓 Do you work or are you a student?",
	"💼 What is your dream job?",
	"🎯 Please tell me about your hobbies.",
	"🏛️ Do you visit museums?",
	"🎮 Do you like computer games?",
	"👨‍👩‍👧‍👦 Can you describe your family?",
	"🏫 Can you describe your school?",
	"📅 What do you do on weekends?",
	"🌤️ What is your favourite season?",
	"📚🎬 What kind of books or movies do you like?",
	"👥 Who do you spend most of your time with?",
	"✈️ If you could visit any country, which one would you choose?",
	"🏃 How often do you exercise?",
	"😌 What’s your favorite way to relax after a busy week?",
	"🏙️ Can you describe your hometown?",
	"🏠 Do you live in a house or a flat?",
	"🍲 What is your favourite food?",
	"🧳 Do you enjoy travelling?",
	"⏳ What do you do in your free time?",
	"📸 Do you like taking photos?",
	"📖 Do you like reading books?",
	"📍 Where do you live in your country?",
	"👨‍🍳 What kind of things can you cook?",
	"🫂 Do you have a lot of friends?",
	"🎧 When do you listen to music?",
	"💪 What do you do to stay healthy?",
	"🥤 What is your favourite drink?",
	"🌙 What do you do in the evenings?",
	"🤝 Can you describe your best friend?",
	"🌍 Describe your country.",
}

// part12Questions returns the three picture questions for a part 1.2 image.
// Every image currently shares the same question set.
func part12Questions(int) []string {
	return []string{
		"What can you see in the picture?",
		"What are the people doing (or what is happening)?",
		"Would you like to do this? Why or why not?",
	}
}

// cueCard is the part 2 long-turn task shown with the picture.
type cueCard struct {
	Title  string
	Points []string
}

// part2Cue returns the cue card for a part 2 image.
func part2Cue(int) cueCard {
	return cueCard{
		Title: "Describe the situation shown in the picture.",
		Points: []string{
			"What the situation is",
			"Why it is important or interesting",
			"How it relates to real life (example)",
		},
	}
}

// discussionTopic is a part 3 topic with its three follow-up questions.
type discussionTopic struct {
	Topic     string
	Questions []string
}

// part3Topics maps image index to its discussion topic.
var part3Topics = map[int]discussionTopic{
	26: {Topic: "Smartphones should be banned in schools", Questions: []string{
		"Why do some people want to ban smartphones at school?",
		"What disadvantages could a ban create for students and parents?",
		"What rules could balance benefits and problems?",
	}},
	27: {Topic: "Social media does more harm than good", Questions: []string{
		"What are the main harms of social media for teenagers?",
		"What benefits does social media provide?",
		"What rules would reduce the harm?",
	}},
	28: {Topic: "Should laptops be allowed in classrooms?", Questions: []string{
		"How can laptops help students learn better?",
		"Why can laptops be distracting in class?",
		"Should schools set strict device rules? Why?",
	}},
	29: {Topic: "Technology in education is more positive or more negative", Questions: []string{
		"How does technology improve learning at school?",
		"What problems can technology cause in education?",
		"How can schools use technology safely and effectively?",
	}},
	30: {Topic: "Watching television has become a popular free time activity", Questions: []string{
		"Is watching TV a good way to relax? Why?",
		"How can TV be harmful, especially for children?",
		"What is better: TV or online content? Why?",
	}},
	31: {Topic: "All countries should adopt a single global language", Questions: []string{
		"What are the advantages of having one global language?",
		"How could it affect culture and identity?",
		"Do you think it is realistic? Why or why not?",
	}},
	32: {Topic: "Cars should be banned from city centers", Questions: []string{
		"Why do some people support banning cars in city centers?",
		"What problems could this cause for some people?",
		"What is a good compromise solution?",
	}},
	33: {Topic: "Online education is more effective than traditional classroom education", Questions: []string{
		"What are the advantages of online education?",
		"What disadvantages can it have?",
		"Do you think online education will replace schools? Why?",
	}},
	34: {Topic: "Gardening should be taught in schools", Questions: []string{
		"What are the benefits of teaching gardening at school?",
		"Why might some people disagree?",
		"Should schools focus more on life skills or academics? Why?",
	}},
}

// part3Topic returns the topic for an image, with a bland placeholder for
// unmapped indices so a content mistake never aborts a running exam.
func part3Topic(img int) discussionTopic {
	if t, ok := part3Topics[img]; ok {
		return t
	}
	return discussionTopic{Topic: "Discuss the topic", Questions: []string{"Why?"}}
}

// Per-question timings in display seconds: preparation then speaking.
var (
	part1Prep, part1Speak = 10, 30
	part12Timings         = [3][2]int{{15, 45}, {10, 30}, {10, 30}}
	part2Prep, part2Speak = 60, 120
	part3Prep, part3Speak = 30, 120
)

// imagePath builds the filesystem path for a stage image.
func imagePath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("image%d.jpg", idx))
}
